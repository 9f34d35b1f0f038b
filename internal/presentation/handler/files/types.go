package files

type shareFileResponse struct {
	FileID      string `json:"fileId"`
	FileName    string `json:"fileName"`
	DownloadURL string `json:"downloadUrl"`
	Announced   bool   `json:"announced"`
	Code        string `json:"code,omitempty"`
	Message     string `json:"message,omitempty"`
}
