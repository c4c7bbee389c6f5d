package portfolio

// Document is the root object persisted remotely and held in memory.
type Document struct {
	Experiences []Experience `json:"experiences" yaml:"experiences"`
	Education   []Education  `json:"education" yaml:"education"`
	Projects    []Project    `json:"projects" yaml:"projects"`
	About       About        `json:"about" yaml:"about"`
	Logs        int          `json:"logs" yaml:"logs"`
}

type Experience struct {
	ID           int64    `json:"id" yaml:"id"`
	Company      string   `json:"company" yaml:"company"`
	Position     string   `json:"position" yaml:"position"`
	Duration     string   `json:"duration" yaml:"duration"`
	Description  string   `json:"description" yaml:"description"`
	Technologies []string `json:"technologies" yaml:"technologies"`
	// Image is a URL, a site-relative path, or empty.
	Image string `json:"image" yaml:"image"`
}

type Education struct {
	ID          int64  `json:"id" yaml:"id"`
	Institution string `json:"institution" yaml:"institution"`
	Degree      string `json:"degree" yaml:"degree"`
	// Field is optional; nil means absent, which is distinct from "".
	Field        *string  `json:"field,omitempty" yaml:"field,omitempty"`
	Duration     string   `json:"duration" yaml:"duration"`
	Achievements []string `json:"achievements" yaml:"achievements"`
	Image        string   `json:"image" yaml:"image"`
}

type Project struct {
	ID           int64    `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description" yaml:"description"`
	Technologies []string `json:"technologies" yaml:"technologies"`
	// Link and GitHub are URLs, null, or "" (the editor's blank value).
	Link   *string `json:"link" yaml:"link"`
	GitHub *string `json:"github" yaml:"github"`
	// Screenshots are image URLs or site-relative paths shown in a gallery.
	Screenshots []string `json:"screenshots,omitempty" yaml:"screenshots,omitempty"`
}

type About struct {
	Intro     string   `json:"intro" yaml:"intro"`
	Skills    []string `json:"skills" yaml:"skills"`
	Interests []string `json:"interests" yaml:"interests"`
}

// Default is the empty document used when nothing else is available.
func Default() *Document {
	return &Document{
		Experiences: []Experience{},
		Education:   []Education{},
		Projects:    []Project{},
		About: About{
			Skills:    []string{},
			Interests: []string{},
		},
	}
}

// StringPtr returns a pointer to s, for optional fields.
func StringPtr(s string) *string { return &s }
