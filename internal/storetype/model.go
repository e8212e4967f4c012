package storetype

type StoreType struct {
	ID        uint   `json:"id"`
	NameAr    string `json:"name_ar"`
	NameEn    string `json:"name_en"`
	Icon      string `json:"icon"`
	SortOrder int    `json:"sort_order"`
	IsActive  bool   `json:"is_active"`
}

type Input struct {
	NameAr    string `json:"name_ar"`
	NameEn    string `json:"name_en"`
	Icon      string `json:"icon"`
	SortOrder int    `json:"sort_order"`
	IsActive  *bool  `json:"is_active"`
}
