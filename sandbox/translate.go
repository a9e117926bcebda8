package sandbox

import (
	"fmt"
	"strconv"

	"github.com/samber/lo"
	"github.com/vodkit-cli/vodkit/adapter"
	"github.com/vodkit-cli/vodkit/libs"
	lua "github.com/yuin/gopher-lua"
)

// Field aliases accepted from adapters. The first present alias wins.
// The vod_* names are what collection-site APIs return, so thin adapters can pass records through.
var (
	idFields          = []string{"id", "vod_id"}
	titleFields       = []string{"title", "name", "vod_name"}
	coverFields       = []string{"cover", "pic", "vod_pic"}
	typeFields        = []string{"type", "type_name"}
	yearFields        = []string{"year", "vod_year"}
	remarksFields     = []string{"remarks", "vod_remarks"}
	descriptionFields = []string{"description", "vod_blurb", "vod_content"}
	areaFields        = []string{"area", "vod_area"}
	directorFields    = []string{"director", "vod_director"}
	actorsFields      = []string{"actors", "vod_actor"}

	itemsFields     = []string{"items", "list", "dataList"}
	totalFields     = []string{"total"}
	pageCountFields = []string{"pageCount", "pagecount"}
	pageSizeFields  = []string{"pageSize", "size"}
	pageFields      = []string{"page", "current"}
)

var known = lo.Flatten([][]string{
	idFields, titleFields, coverFields, typeFields, yearFields, remarksFields,
	descriptionFields, areaFields, directorFields, actorsFields,
	{"episodes", "play_list", "vod_play_url", "vod_play_from"},
})

// scalar renders strings and numbers as strings. Everything else is empty.
func scalar(v lua.LValue) string {
	switch v := v.(type) {
	case lua.LString:
		return string(v)
	case lua.LNumber:
		return strconv.FormatFloat(float64(v), 'f', -1, 64)
	default:
		return ""
	}
}

func getString(t *lua.LTable, aliases []string) string {
	for _, name := range aliases {
		if s := scalar(t.RawGetString(name)); s != "" {
			return s
		}
	}
	return ""
}

func getInt(t *lua.LTable, aliases []string) int {
	for _, name := range aliases {
		if n, err := strconv.Atoi(scalar(t.RawGetString(name))); err == nil {
			return n
		}
	}
	return 0
}

func extra(t *lua.LTable) map[string]any {
	m := make(map[string]any)
	t.ForEach(func(k, v lua.LValue) {
		name := k.String()
		if lo.Contains(known, name) {
			return
		}
		if gv := libs.ToGo(v); gv != nil {
			m[name] = gv
		}
	})

	if len(m) == 0 {
		return nil
	}
	return m
}

func itemFromTable(t *lua.LTable) (adapter.Item, bool) {
	item := adapter.Item{
		ID:      getString(t, idFields),
		Title:   getString(t, titleFields),
		Cover:   getString(t, coverFields),
		Type:    getString(t, typeFields),
		Year:    getString(t, yearFields),
		Remarks: getString(t, remarksFields),
		Extra:   extra(t),
	}

	return item, item.ID != "" || item.Title != ""
}

// pageFromLua accepts a page table, or a bare list of items.
func pageFromLua(v lua.LValue) (*adapter.Page, error) {
	t, ok := v.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("expected a table, got %s", v.Type())
	}

	list := t
	page := &adapter.Page{}

	for _, name := range itemsFields {
		if l, ok := t.RawGetString(name).(*lua.LTable); ok {
			list = l
			page.Total = getInt(t, totalFields)
			page.PageCount = getInt(t, pageCountFields)
			page.PageSize = getInt(t, pageSizeFields)
			page.Page = getInt(t, pageFields)
			break
		}
	}

	for i := 1; i <= list.MaxN(); i++ {
		entry, ok := list.RawGetInt(i).(*lua.LTable)
		if !ok {
			continue
		}
		if item, ok := itemFromTable(entry); ok {
			page.Items = append(page.Items, item)
		}
	}

	return page, nil
}

func detailFromLua(v lua.LValue) (*adapter.Detail, error) {
	t, ok := v.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("expected a table, got %s", v.Type())
	}

	d := &adapter.Detail{
		ID:          getString(t, idFields),
		Title:       getString(t, titleFields),
		Cover:       getString(t, coverFields),
		Description: getString(t, descriptionFields),
		Type:        getString(t, typeFields),
		Year:        getString(t, yearFields),
		Area:        getString(t, areaFields),
		Director:    getString(t, directorFields),
		Actors:      getString(t, actorsFields),
		Extra:       extra(t),
	}

	switch {
	case t.RawGetString("episodes").Type() == lua.LTTable:
		d.Episodes = episodesFromTable(t.RawGetString("episodes").(*lua.LTable), "")
	case t.RawGetString("play_list").Type() == lua.LTTable:
		groups := t.RawGetString("play_list").(*lua.LTable)
		for i := 1; i <= groups.MaxN(); i++ {
			g, ok := groups.RawGetInt(i).(*lua.LTable)
			if !ok {
				continue
			}
			if eps, ok := g.RawGetString("episodes").(*lua.LTable); ok {
				d.Episodes = append(d.Episodes, episodesFromTable(eps, getString(g, []string{"name", "source"}))...)
			}
		}
	default:
		d.Episodes = adapter.ParsePlayList(getString(t, []string{"vod_play_url"}), getString(t, []string{"vod_play_from"}))
	}

	return d, nil
}

func episodesFromTable(t *lua.LTable, group string) []adapter.Episode {
	var episodes []adapter.Episode
	for i := 1; i <= t.MaxN(); i++ {
		e, ok := t.RawGetInt(i).(*lua.LTable)
		if !ok {
			continue
		}

		ep := adapter.Episode{
			Name:  getString(e, []string{"name", "title"}),
			URL:   getString(e, []string{"url"}),
			CID:   getString(e, []string{"cid"}),
			Group: lo.Ternary(group != "", group, getString(e, []string{"group"})),
		}
		if ep.URL == "" && ep.CID == "" {
			continue
		}
		if ep.Name == "" {
			ep.Name = fmt.Sprintf("Episode %d", i)
		}

		episodes = append(episodes, ep)
	}
	return episodes
}
