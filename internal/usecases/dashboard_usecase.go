package usecases

import (
	"context"
	"math"
	"sort"
	"strings"

	"buyerwatch/internal/entities"
	"buyerwatch/internal/interfaces"
)

const GalleryAllYears = "All"

// ChatSummary is the chat part of the dashboard overview
type ChatSummary struct {
	MessageCount int                  `json:"message_count"`
	LastImport   *entities.ChatImport `json:"last_import,omitempty"`
}

// Overview bundles every dataset for the dashboard landing page
type Overview struct {
	ProjectName        string                     `json:"project_name"`
	Timeline           []entities.TimelineEntry   `json:"timeline"`
	Documents          []entities.Document        `json:"documents"`
	Progress           entities.ProgressReport    `json:"progress"`
	Updates            []entities.CommunityUpdate `json:"updates"`
	Gallery            []entities.GalleryItem     `json:"gallery"`
	GalleryYears       []string                   `json:"gallery_years"`
	SuggestedQuestions []string                   `json:"suggested_questions"`
	Chats              ChatSummary                `json:"chats"`
}

type DashboardUsecase struct {
	source interfaces.DashboardSource
	chats  interfaces.ChatStore
}

func NewDashboardUsecase(source interfaces.DashboardSource, chats interfaces.ChatStore) *DashboardUsecase {
	return &DashboardUsecase{
		source: source,
		chats:  chats,
	}
}

func (u *DashboardUsecase) Timeline() []entities.TimelineEntry {
	return u.source.Snapshot().Timeline
}

func (u *DashboardUsecase) Documents() []entities.Document {
	return u.source.Snapshot().Documents
}

func (u *DashboardUsecase) Updates() []entities.CommunityUpdate {
	return u.source.Snapshot().Updates
}

func (u *DashboardUsecase) SuggestedQuestions() []string {
	return u.source.Snapshot().SuggestedQuestions
}

func (u *DashboardUsecase) SampleChat() []string {
	return u.source.Snapshot().SampleChat
}

func (u *DashboardUsecase) Progress() entities.ProgressReport {
	items := u.source.Snapshot().Progress
	return entities.ProgressReport{Overall: OverallProgress(items), Items: items}
}

// Gallery filters by year and media type; "All" or empty disables a filter
func (u *DashboardUsecase) Gallery(year, mediaType string) []entities.GalleryItem {
	return FilterGallery(u.source.Snapshot().Gallery, year, mediaType)
}

func (u *DashboardUsecase) Featured() []entities.GalleryItem {
	var out []entities.GalleryItem
	for _, item := range u.source.Snapshot().Gallery {
		if item.Featured {
			out = append(out, item)
		}
	}
	return out
}

func (u *DashboardUsecase) GalleryYears() []string {
	return GalleryYears(u.source.Snapshot().Gallery)
}

func (u *DashboardUsecase) Overview(ctx context.Context) (*Overview, error) {
	data := u.source.Snapshot()

	count, err := u.chats.CountMessages(ctx)
	if err != nil {
		return nil, err
	}
	last, err := u.chats.LastImport(ctx)
	if err != nil {
		return nil, err
	}

	return &Overview{
		ProjectName:        data.ProjectName,
		Timeline:           data.Timeline,
		Documents:          data.Documents,
		Progress:           entities.ProgressReport{Overall: OverallProgress(data.Progress), Items: data.Progress},
		Updates:            data.Updates,
		Gallery:            data.Gallery,
		GalleryYears:       GalleryYears(data.Gallery),
		SuggestedQuestions: data.SuggestedQuestions,
		Chats:              ChatSummary{MessageCount: count, LastImport: last},
	}, nil
}

// OverallProgress is the rounded mean of all item percentages, 0 for none
func OverallProgress(items []entities.ProgressItem) int {
	if len(items) == 0 {
		return 0
	}
	sum := 0
	for _, it := range items {
		sum += it.Percentage
	}
	return int(math.Round(float64(sum) / float64(len(items))))
}

func FilterGallery(items []entities.GalleryItem, year, mediaType string) []entities.GalleryItem {
	year = strings.TrimSpace(year)
	if strings.EqualFold(year, GalleryAllYears) {
		year = ""
	}
	kind := normalizeMediaType(mediaType)
	if year == "" && kind == "" {
		return items
	}

	out := []entities.GalleryItem{}
	for _, item := range items {
		if year != "" && !strings.Contains(item.Date, year) {
			continue
		}
		if kind != "" && !strings.EqualFold(item.Type, kind) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// normalizeMediaType maps "Images"/"Videos" style labels to item types
func normalizeMediaType(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "all":
		return ""
	case "images":
		return "image"
	case "videos":
		return "video"
	}
	return s
}

// GalleryYears lists "All" followed by the distinct four-digit years, newest first
func GalleryYears(items []entities.GalleryItem) []string {
	seen := map[string]bool{}
	var years []string
	for _, item := range items {
		for _, field := range strings.FieldsFunc(item.Date, func(r rune) bool { return r < '0' || r > '9' }) {
			if len(field) == 4 && !seen[field] {
				seen[field] = true
				years = append(years, field)
			}
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(years)))
	return append([]string{GalleryAllYears}, years...)
}
