package models

// Province is the first level of the Costa Rica administrative hierarchy
type Province struct {
	ID   int64  `json:"id" db:"id" example:"1"`
	Code int    `json:"code" db:"code" example:"1"`
	Name string `json:"name" db:"name" example:"San José"`
}

// Canton belongs to a province
type Canton struct {
	ID         int64  `json:"id" db:"id"`
	ProvinceID int64  `json:"provinceId" db:"province_id"`
	Code       int    `json:"code" db:"code"`
	Name       string `json:"name" db:"name" example:"Escazú"`
}

// District belongs to a canton
type District struct {
	ID       int64  `json:"id" db:"id"`
	CantonID int64  `json:"cantonId" db:"canton_id"`
	Code     int    `json:"code" db:"code"`
	Name     string `json:"name" db:"name" example:"San Rafael"`
}

// Selection is a province/canton/district pick. Changing a level clears the levels below it.
type Selection struct {
	ProvinceID *int64 `json:"provinceId,omitempty"`
	CantonID   *int64 `json:"cantonId,omitempty"`
	DistrictID *int64 `json:"districtId,omitempty"`
}

// SelectionFromAddress builds a selection from stored address ids
func SelectionFromAddress(a Address) Selection {
	return Selection{ProvinceID: a.ProvinceID, CantonID: a.CantonID, DistrictID: a.DistrictID}
}

// WithProvince selects a province. A different province resets canton and district.
func (s Selection) WithProvince(id int64) Selection {
	if s.ProvinceID != nil && *s.ProvinceID == id {
		return s
	}
	return Selection{ProvinceID: &id}
}

// WithCanton selects a canton. A different canton resets the district.
func (s Selection) WithCanton(id int64) Selection {
	if s.CantonID != nil && *s.CantonID == id {
		return s
	}
	s.CantonID = &id
	s.DistrictID = nil
	return s
}

// WithDistrict selects a district
func (s Selection) WithDistrict(id int64) Selection {
	s.DistrictID = &id
	return s
}

// Clear removes every level
func (s Selection) Clear() Selection {
	return Selection{}
}
