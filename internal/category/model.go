package category

type Category struct {
	ID            uint   `json:"id"`
	NameAr        string `json:"name_ar"`
	NameEn        string `json:"name_en"`
	DescriptionAr string `json:"description_ar"`
	DescriptionEn string `json:"description_en"`
	Icon          string `json:"icon"`
	SortOrder     int    `json:"sort_order"`
	IsActive      bool   `json:"is_active"`
}

// Input is the writable part of a category.
type Input struct {
	NameAr        string `json:"name_ar"`
	NameEn        string `json:"name_en"`
	DescriptionAr string `json:"description_ar"`
	DescriptionEn string `json:"description_en"`
	Icon          string `json:"icon"`
	SortOrder     int    `json:"sort_order"`
	IsActive      *bool  `json:"is_active"`
}
