package model

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// SubmissionFilter drives the admin submission list. Query matches first
// name, last name or NIK.
type SubmissionFilter struct {
	Status *Status
	City   string
	Query  string
	Linked *bool
	Page   int
	Limit  int
}

type PostFilter struct {
	Status *PostStatus
	Page   int
	Limit  int
}

// Normalize clamps page and limit to sane values.
func Normalize(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}

// Offset returns the row offset for a normalized page.
func Offset(page, limit int) int {
	return (page - 1) * limit
}

type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Statistics are the aggregate dashboard figures. Demographic breakdowns only
// count verified submissions.
type Statistics struct {
	Total                     int            `json:"total"`
	ByStatus                  map[Status]int `json:"byStatus"`
	ByGender                  []Count        `json:"byGender"`
	ByCity                    []Count        `json:"byCity"`
	ByEducation               []Count        `json:"byEducation"`
	WithDisability            int            `json:"withDisability"`
	ExperiencedDiscrimination int            `json:"experiencedDiscrimination"`
	RegisteredDTKS            int            `json:"registeredDTKS"`
	LinkedToAccount           int            `json:"linkedToAccount"`
}
