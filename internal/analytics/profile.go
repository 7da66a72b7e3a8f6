package analytics

import (
	"math"
	"strings"

	"skibook/internal/models"
)

type ProfileDetail struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	HasAvatar     bool   `json:"hasAvatar"`
	GalleryCount  int    `json:"galleryCount"`
	LanguageCount int    `json:"languageCount"`
	HasBiography  bool   `json:"hasBiography"`
}

type ProfileSummary struct {
	TotalInstructors int `json:"totalInstructors"`
	WithAvatar       int `json:"withAvatar"`
	WithGallery      int `json:"withGallery"`
	WithLanguages    int `json:"withLanguages"`
	WithBiography    int `json:"withBiography"`
}

// ProfilePercentages are whole percentages of TotalInstructors.
type ProfilePercentages struct {
	Avatar    int `json:"avatar"`
	Gallery   int `json:"gallery"`
	Languages int `json:"languages"`
	Biography int `json:"biography"`
}

type ProfileCompletenessData struct {
	Summary     ProfileSummary     `json:"summary"`
	Percentages ProfilePercentages `json:"percentages"`
	Details     []ProfileDetail    `json:"details"`
}

// ProfileCompleteness reports which optional profile parts each instructor has
// filled in. Blank avatar and biography strings count as missing.
func ProfileCompleteness(instructors []models.Instructor, profiles map[string]models.Profile) ProfileCompletenessData {
	data := ProfileCompletenessData{Details: make([]ProfileDetail, 0, len(instructors))}

	for _, in := range instructors {
		p := profiles[in.ID]
		d := ProfileDetail{
			ID:            in.ID,
			Name:          in.Name(),
			HasAvatar:     strings.TrimSpace(in.Avatar) != "",
			GalleryCount:  len(p.Images),
			LanguageCount: len(p.Languages),
			HasBiography:  strings.TrimSpace(in.Biography) != "",
		}
		data.Details = append(data.Details, d)

		s := &data.Summary
		s.TotalInstructors++
		if d.HasAvatar {
			s.WithAvatar++
		}
		if d.GalleryCount > 0 {
			s.WithGallery++
		}
		if d.LanguageCount > 0 {
			s.WithLanguages++
		}
		if d.HasBiography {
			s.WithBiography++
		}
	}

	s := data.Summary
	data.Percentages = ProfilePercentages{
		Avatar:    percent(s.WithAvatar, s.TotalInstructors),
		Gallery:   percent(s.WithGallery, s.TotalInstructors),
		Languages: percent(s.WithLanguages, s.TotalInstructors),
		Biography: percent(s.WithBiography, s.TotalInstructors),
	}
	return data
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(n) / float64(total) * 100))
}
