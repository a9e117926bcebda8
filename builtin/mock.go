package builtin

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"github.com/vodkit-cli/vodkit/adapter"
)

// MockID identifies the offline adapter.
const MockID = "mock"

type mockRecord struct {
	detail  adapter.Detail
	remarks string
}

var mockCatalog = []mockRecord{
	{
		detail: adapter.Detail{
			ID:          "1001",
			Title:       "Naruto",
			Description: "A young ninja seeks recognition from his peers and dreams of becoming the Hokage.",
			Type:        "Anime",
			Year:        "2002",
			Area:        "Japan",
			Director:    "Hayato Date",
			Actors:      "Junko Takeuchi, Noriaki Sugiyama, Chie Nakamura",
			Episodes:    adapter.ParsePlayList("1$https://mock.invalid/naruto/ep1.m3u8#2$https://mock.invalid/naruto/ep2.m3u8#3$https://mock.invalid/naruto/ep3.m3u8", "mock"),
		},
		remarks: "720 episodes",
	},
	{
		detail: adapter.Detail{
			ID:          "1002",
			Title:       "One Piece",
			Description: "Monkey D. Luffy sets out to sea to find the legendary treasure and become King of the Pirates.",
			Type:        "Anime",
			Year:        "1999",
			Area:        "Japan",
			Director:    "Konosuke Uda",
			Actors:      "Mayumi Tanaka, Akemi Okamura, Kazuya Nakai",
			Episodes:    adapter.ParsePlayList("1$https://mock.invalid/onepiece/ep1.m3u8#2$https://mock.invalid/onepiece/ep2.m3u8", "mock"),
		},
		remarks: "ongoing",
	},
	{
		detail: adapter.Detail{
			ID:          "1003",
			Title:       "Attack on Titan",
			Description: "Humanity lives inside cities surrounded by enormous walls that protect them from the Titans.",
			Type:        "Anime",
			Year:        "2013",
			Area:        "Japan",
		},
		remarks: "finished",
	},
	{
		detail: adapter.Detail{
			ID:          "1004",
			Title:       "Fullmetal Alchemist",
			Description: "Two brothers search for the Philosopher's Stone to restore what alchemy took from them.",
			Type:        "Anime",
			Year:        "2009",
			Area:        "Japan",
		},
		remarks: "64 episodes",
	},
}

// Mock serves a small fixed catalog without any network access.
type Mock struct{}

func (Mock) Descriptor() adapter.Descriptor {
	return adapter.Descriptor{ID: MockID, Name: "Mock data"}
}

func (Mock) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{Detail: true}
}

// Search matches keyword against titles and descriptions, case-insensitively.
func (Mock) Search(_ context.Context, keyword string, page, pageSize int) (*adapter.Page, error) {
	keyword = strings.ToLower(keyword)
	matches := lo.Filter(mockCatalog, func(r mockRecord, _ int) bool {
		return strings.Contains(strings.ToLower(r.detail.Title), keyword) ||
			strings.Contains(strings.ToLower(r.detail.Description), keyword)
	})

	page = max(page, 1)
	if pageSize <= 0 {
		pageSize = len(mockCatalog)
	}

	start := min((page-1)*pageSize, len(matches))
	end := min(start+pageSize, len(matches))

	return &adapter.Page{
		Items: lo.Map(matches[start:end], func(r mockRecord, _ int) adapter.Item {
			return adapter.Item{
				ID:      r.detail.ID,
				Title:   r.detail.Title,
				Type:    r.detail.Type,
				Year:    r.detail.Year,
				Remarks: r.remarks,
			}
		}),
		Total:    len(matches),
		PageSize: pageSize,
		Page:     page,
	}, nil
}

// Detail returns a copy of the catalog record. Only records with episodes have details.
func (Mock) Detail(_ context.Context, id string) (*adapter.Detail, error) {
	r, ok := lo.Find(mockCatalog, func(r mockRecord) bool {
		return r.detail.ID == id && len(r.detail.Episodes) > 0
	})
	if !ok {
		return nil, adapter.ErrNotFound
	}

	d := r.detail
	d.Episodes = append([]adapter.Episode(nil), r.detail.Episodes...)
	return &d, nil
}

func (Mock) PlayURL(context.Context, string, adapter.PlayOptions) (string, error) {
	return "", adapter.ErrUnsupported
}
