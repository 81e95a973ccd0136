package http

import (
	"fmt"
	"time"

	"juvenis/app/internal/domain/news"
	"juvenis/app/internal/domain/volume"
	"juvenis/app/internal/presentation/http/templates"
)

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d de %s de %d", t.Day(), spanishMonths[t.Month()-1], t.Year())
}

func volumeCard(v volume.Volume) templates.VolumeCard {
	return templates.VolumeCard{
		ID:        v.ID,
		Title:     v.Title,
		Number:    v.Number,
		Year:      v.Year,
		CoverURL:  v.CoverURL,
		PDFURL:    v.PDFURL,
		Content:   v.Content,
		Published: v.Published,
		Updated:   formatDate(v.UpdatedAt),
	}
}

func volumeCards(volumes []volume.Volume) []templates.VolumeCard {
	cards := make([]templates.VolumeCard, 0, len(volumes))
	for _, v := range volumes {
		cards = append(cards, volumeCard(v))
	}
	return cards
}

func newsCard(item news.Item) templates.NewsCard {
	card := templates.NewsCard{
		ID:        item.ID,
		Title:     item.Title,
		Category:  string(item.Category),
		Extract:   item.Extract,
		ImageURL:  item.ImageURL,
		Status:    string(item.Status),
		Published: item.IsPublished(),
	}
	if item.PublishedDate != nil {
		card.Date = formatDate(*item.PublishedDate)
	}
	return card
}

func newsCards(items []news.Item) []templates.NewsCard {
	cards := make([]templates.NewsCard, 0, len(items))
	for _, item := range items {
		cards = append(cards, newsCard(item))
	}
	return cards
}

func categoryNames() []string {
	categories := news.Categories()
	names := make([]string, 0, len(categories))
	for _, category := range categories {
		names = append(names, string(category))
	}
	return names
}

// distinctYears keeps the first occurrence of each year, preserving list order.
func distinctYears(volumes []volume.Volume) []string {
	seen := make(map[string]struct{}, len(volumes))
	years := make([]string, 0, len(volumes))
	for _, v := range volumes {
		if _, ok := seen[v.Year]; ok {
			continue
		}
		seen[v.Year] = struct{}{}
		years = append(years, v.Year)
	}
	return years
}
