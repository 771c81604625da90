package server

// validateRequest is the POST /api/validate payload. Keys arrive as an
// explicit array, as newline-separated text, or both; the handler merges
// and dedupes them.
type validateRequest struct {
	Keys []string `json:"keys"`
	Text string   `json:"text"`
	// Provider pins every key to one provider; empty or "auto" means per-key
	// detection.
	Provider    string `json:"provider"`
	Concurrency int    `json:"concurrency"`
	// Model switches the batch to model-scoped validation.
	Model        string `json:"model"`
	CustomAPIURL string `json:"custom_api_url"`
	CustomModel  string `json:"custom_model"`
}

// modelsRequest is the POST /api/models payload.
type modelsRequest struct {
	Key          string `json:"key" binding:"required"`
	Provider     string `json:"provider"`
	CustomAPIURL string `json:"custom_api_url"`
	CustomModel  string `json:"custom_model"`
}

// analyzeRequest is the POST /api/advanced/analyze payload. The check flags
// default to true; false elides the corresponding result fields.
type analyzeRequest struct {
	APIKey         string `json:"api_key" binding:"required"`
	PreferredModel string `json:"preferred_model"`
	CheckModels    *bool  `json:"check_models"`
	CheckQuota     *bool  `json:"check_quota"`
}
