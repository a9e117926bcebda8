package builtin

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/samber/lo"
	"github.com/vodkit-cli/vodkit/adapter"
	"github.com/vodkit-cli/vodkit/internal/cache"
	"github.com/vodkit-cli/vodkit/internal/scraper"
	"github.com/vodkit-cli/vodkit/log"
)

// VOD queries a collection site API of the form
//
//	{base}?ac=detail&wd=<keyword>&pg=<page>
//	{base}?ac=detail&ids=<id>
//
// answering either JSON or, when UseXML is set, the XML feed variant.
type VOD struct {
	id       string
	name     string
	base     string
	useXML   bool
	fetch    scraper.Fetcher
	cacheTTL time.Duration
}

// NewVOD returns a VOD adapter. A zero cacheTTL disables response caching.
func NewVOD(id, name, base string, useXML bool, fetch scraper.Fetcher, cacheTTL time.Duration) *VOD {
	return &VOD{
		id:       id,
		name:     lo.Ternary(name != "", name, adapter.NameFromID(id)),
		base:     base,
		useXML:   useXML,
		fetch:    fetch,
		cacheTTL: cacheTTL,
	}
}

func (v *VOD) Descriptor() adapter.Descriptor {
	return adapter.Descriptor{ID: v.id, Name: v.name, SourceURL: v.base}
}

func (v *VOD) Capabilities() adapter.Capabilities {
	return adapter.Capabilities{Detail: true}
}

func (v *VOD) Search(ctx context.Context, keyword string, page, pageSize int) (*adapter.Page, error) {
	resp, err := v.query(ctx, url.Values{
		"ac": {"detail"},
		"wd": {keyword},
		"pg": {strconv.Itoa(max(page, 1))},
	})
	if err != nil {
		return nil, err
	}

	return &adapter.Page{
		Items: lo.Map(resp.List, func(r vodRecord, _ int) adapter.Item {
			return r.item()
		}),
		Total:     resp.Total.Int(),
		PageCount: resp.PageCount.Int(),
		PageSize:  resp.Limit.Int(),
		Page:      resp.Page.Int(),
	}, nil
}

func (v *VOD) Detail(ctx context.Context, id string) (*adapter.Detail, error) {
	resp, err := v.query(ctx, url.Values{
		"ac":  {"detail"},
		"ids": {id},
	})
	if err != nil {
		return nil, err
	}

	r, ok := lo.First(resp.List)
	if !ok {
		return nil, adapter.ErrNotFound
	}

	return r.detail(), nil
}

// PlayURL is not offered. Episodes of a detail record already carry playable URLs.
func (v *VOD) PlayURL(context.Context, string, adapter.PlayOptions) (string, error) {
	return "", adapter.ErrUnsupported
}

func (v *VOD) query(ctx context.Context, params url.Values) (*vodResponse, error) {
	target := v.endpoint(params)
	cacheKey := cache.GenerateKey(v.id, target)

	var resp vodResponse
	if v.cacheTTL > 0 && cache.Read(cacheKey, v.cacheTTL, &resp) {
		return &resp, nil
	}

	headers := map[string]string{"Referer": v.base}
	body, err := v.fetch.Get(ctx, target, headers)
	if err != nil {
		return nil, err
	}

	if v.useXML || strings.HasPrefix(strings.TrimSpace(body), "<?xml") {
		err = decodeXML(body, &resp)
	} else {
		err = json.Unmarshal([]byte(body), &resp)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", v.id, err)
	}

	// code is 1 on success; the XML feed carries no code
	if resp.Code != 0 && resp.Code != 1 {
		return nil, fmt.Errorf("%s: %s (code %d)", v.id, lo.Ternary(resp.Msg != "", resp.Msg, "request failed"), resp.Code)
	}

	if v.cacheTTL > 0 {
		if err := cache.Write(cacheKey, resp); err != nil {
			log.Warnf("%s: cache response: %s", v.id, err)
		}
	}

	return &resp, nil
}

func (v *VOD) endpoint(params url.Values) string {
	sep := lo.Ternary(strings.Contains(v.base, "?"), "&", "?")
	return v.base + sep + params.Encode()
}

// flexString accepts JSON strings and numbers alike. Collection sites are not consistent.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) Int() int {
	n, _ := strconv.Atoi(strings.TrimSpace(string(f)))
	return n
}

type vodResponse struct {
	Code      int         `json:"code"`
	Msg       string      `json:"msg"`
	Page      flexString  `json:"page"`
	PageCount flexString  `json:"pagecount"`
	Limit     flexString  `json:"limit"`
	Total     flexString  `json:"total"`
	List      []vodRecord `json:"list"`
}

type vodRecord struct {
	ID        flexString `json:"vod_id"`
	Name      string     `json:"vod_name"`
	Pic       string     `json:"vod_pic"`
	TypeName  string     `json:"type_name"`
	Year      flexString `json:"vod_year"`
	Area      string     `json:"vod_area"`
	Remarks   string     `json:"vod_remarks"`
	Blurb     string     `json:"vod_blurb"`
	Content   string     `json:"vod_content"`
	Actor     string     `json:"vod_actor"`
	Director  string     `json:"vod_director"`
	PlayFrom  string     `json:"vod_play_from"`
	PlayURL   string     `json:"vod_play_url"`
	UpdatedAt string     `json:"vod_time"`
}

func (r vodRecord) item() adapter.Item {
	return adapter.Item{
		ID:      string(r.ID),
		Title:   r.Name,
		Cover:   r.Pic,
		Type:    r.TypeName,
		Year:    string(r.Year),
		Remarks: r.Remarks,
	}
}

func (r vodRecord) detail() *adapter.Detail {
	d := &adapter.Detail{
		ID:          string(r.ID),
		Title:       r.Name,
		Cover:       r.Pic,
		Description: lo.Ternary(r.Blurb != "", r.Blurb, stripTags(r.Content)),
		Type:        r.TypeName,
		Year:        string(r.Year),
		Area:        r.Area,
		Director:    r.Director,
		Actors:      r.Actor,
		Episodes:    adapter.ParsePlayList(r.PlayURL, r.PlayFrom),
	}

	extra := lo.PickBy(map[string]string{"remarks": r.Remarks, "updated_at": r.UpdatedAt}, func(_, v string) bool {
		return v != ""
	})
	if len(extra) > 0 {
		d.Extra = lo.MapValues(extra, func(v, _ string) any { return v })
	}

	return d
}

// stripTags drops HTML markup from site-provided descriptions and decodes entities.
func stripTags(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}

type xmlFeed struct {
	List struct {
		Page        string     `xml:"page,attr"`
		PageCount   string     `xml:"pagecount,attr"`
		PageSize    string     `xml:"pagesize,attr"`
		RecordCount string     `xml:"recordcount,attr"`
		Videos      []xmlVideo `xml:"video"`
	} `xml:"list"`
}

type xmlVideo struct {
	Last     string    `xml:"last"`
	ID       string    `xml:"id"`
	Name     string    `xml:"name"`
	Type     string    `xml:"type"`
	Pic      string    `xml:"pic"`
	Area     string    `xml:"area"`
	Year     string    `xml:"year"`
	Note     string    `xml:"note"`
	Actor    string    `xml:"actor"`
	Director string    `xml:"director"`
	Des      string    `xml:"des"`
	Play     []xmlPlay `xml:"dl>dd"`
}

type xmlPlay struct {
	Flag string `xml:"flag,attr"`
	URL  string `xml:",chardata"`
}

// decodeXML maps the XML feed onto the JSON response shape.
func decodeXML(body string, resp *vodResponse) error {
	var feed xmlFeed
	if err := xml.Unmarshal([]byte(body), &feed); err != nil {
		return err
	}

	resp.Page = flexString(feed.List.Page)
	resp.PageCount = flexString(feed.List.PageCount)
	resp.Limit = flexString(feed.List.PageSize)
	resp.Total = flexString(feed.List.RecordCount)
	resp.List = lo.Map(feed.List.Videos, func(v xmlVideo, _ int) vodRecord {
		return vodRecord{
			ID:        flexString(strings.TrimSpace(v.ID)),
			Name:      strings.TrimSpace(v.Name),
			Pic:       strings.TrimSpace(v.Pic),
			TypeName:  strings.TrimSpace(v.Type),
			Year:      flexString(strings.TrimSpace(v.Year)),
			Area:      strings.TrimSpace(v.Area),
			Remarks:   strings.TrimSpace(v.Note),
			Content:   v.Des,
			Actor:     strings.TrimSpace(v.Actor),
			Director:  strings.TrimSpace(v.Director),
			PlayFrom:  strings.Join(lo.Map(v.Play, func(p xmlPlay, _ int) string { return p.Flag }), "$$$"),
			PlayURL:   strings.Join(lo.Map(v.Play, func(p xmlPlay, _ int) string { return strings.TrimSpace(p.URL) }), "$$$"),
			UpdatedAt: strings.TrimSpace(v.Last),
		}
	})

	return nil
}
