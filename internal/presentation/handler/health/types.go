package health

type healthResponse struct {
	Status     string `json:"status"`
	Timestamp  string `json:"timestamp"`
	Uptime     string `json:"uptime"`
	Connection string `json:"connection"`
}
