package registry

// ApiItem is one vehicle as published by the upstream registry.
type ApiItem struct {
	Plate        string `json:"plate"`
	TariffPlanID int64  `json:"tariff_plan_id"`
	FacilityID   *int64 `json:"facility_id"`
	AssignedSpot *int   `json:"assigned_spot"`
	Owner        string `json:"owner"`
}

// ApiResponse models the top-level structure of the registry's response.
type ApiResponse struct {
	Code int `json:"code"`
	Data struct {
		Page     int       `json:"page"`
		PageSize int       `json:"pageSize"`
		Total    int       `json:"total"`
		Items    []ApiItem `json:"items"`
	} `json:"data"`
}
