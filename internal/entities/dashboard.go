package entities

type TimelineEntry struct {
	Date        string `yaml:"date" json:"date"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Status      string `yaml:"status" json:"status"` // completed, current, future
}

type Document struct {
	Title string `yaml:"title" json:"title"`
	Date  string `yaml:"date" json:"date"`
	Type  string `yaml:"type" json:"type"`
	Size  string `yaml:"size" json:"size"`
}

type ProgressItem struct {
	Name       string `yaml:"name" json:"name"`
	Percentage int    `yaml:"percentage" json:"percentage"`
}

type ProgressReport struct {
	Overall int            `json:"overall"`
	Items   []ProgressItem `json:"items"`
}

type CommunityUpdate struct {
	Author  string `yaml:"author" json:"author"`
	Avatar  string `yaml:"avatar" json:"avatar"`
	Message string `yaml:"message" json:"message"`
	Time    string `yaml:"time" json:"time"`
	Replies int    `yaml:"replies" json:"replies"`
}

type GalleryItem struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Date        string `yaml:"date" json:"date"`
	Type        string `yaml:"type" json:"type"` // image or video
	URL         string `yaml:"url" json:"url"`
	Featured    bool   `yaml:"featured" json:"featured"`
}

// DashboardData is the full static dataset behind the community dashboard
type DashboardData struct {
	ProjectName        string            `yaml:"project_name" json:"project_name"`
	Timeline           []TimelineEntry   `yaml:"timeline" json:"timeline"`
	Documents          []Document        `yaml:"documents" json:"documents"`
	Progress           []ProgressItem    `yaml:"progress" json:"progress"`
	Updates            []CommunityUpdate `yaml:"updates" json:"updates"`
	Gallery            []GalleryItem     `yaml:"gallery" json:"gallery"`
	SuggestedQuestions []string          `yaml:"suggested_questions" json:"suggested_questions"`
	SampleChat         []string          `yaml:"sample_chat" json:"-"`
}
