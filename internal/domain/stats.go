package domain

// CampaignStats are the derived engagement numbers for one campaign.
type CampaignStats struct {
	CampaignID string  `json:"campaign_id"`
	Total      int     `json:"total"`
	Opened     int     `json:"opened"`
	Clicked    int     `json:"clicked"`
	Bounced    int     `json:"bounced"`
	OpenRate   float64 `json:"open_rate"`
	ClickRate  float64 `json:"click_rate"`
	BounceRate float64 `json:"bounce_rate"`
}

// GlobalStats aggregate engagement across all campaigns.
type GlobalStats struct {
	TotalCampaigns int     `json:"total_campaigns"`
	TotalEmails    int     `json:"total_emails"`
	TotalOpened    int     `json:"total_opened"`
	TotalClicked   int     `json:"total_clicked"`
	TotalBounced   int     `json:"total_bounced"`
	OpenRate       float64 `json:"open_rate"`
	ClickRate      float64 `json:"click_rate"`
	BounceRate     float64 `json:"bounce_rate"`
}

// Rate returns count/total as a percentage, 0 when total is 0.
func Rate(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}
