package igdb

// Remote payload shapes. Timestamps are unix seconds; reference fields carry
// bare remote ids unless the query expands them.

type Game struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	Summary           string  `json:"summary"`
	FirstReleaseDate  int64   `json:"first_release_date"`
	Rating            float64 `json:"rating"`
	RatingCount       int     `json:"rating_count"`
	UpdatedAt         int64   `json:"updated_at"`
	Genres            []int64 `json:"genres"`
	Platforms         []int64 `json:"platforms"`
	InvolvedCompanies []int64 `json:"involved_companies"`
	Cover             int64   `json:"cover"`
	Screenshots       []int64 `json:"screenshots"`
}

type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Platform struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Company struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// InvolvedCompany is the join record between a game and a company. Its own id
// is what games reference; the real company lives in the nested object.
type InvolvedCompany struct {
	ID      int64   `json:"id"`
	Game    int64   `json:"game"`
	Company Company `json:"company"`
}

// Image covers both the covers and screenshots endpoints, which share a shape.
type Image struct {
	ID     int64  `json:"id"`
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}
