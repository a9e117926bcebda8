package adapter

import (
	"fmt"
	"strings"
)

// ParsePlayList parses the collection-site playlist format
//
//	name$url#name$url$$$name$url...
//
// where $$$ separates playlists and groups names them, e.g. "m3u8$$$mp4".
// Entries without a name are numbered.
func ParsePlayList(playURL, groups string) []Episode {
	if strings.TrimSpace(playURL) == "" {
		return nil
	}

	names := strings.Split(groups, "$$$")

	var episodes []Episode
	for i, list := range strings.Split(playURL, "$$$") {
		var group string
		if i < len(names) {
			group = strings.TrimSpace(names[i])
		}

		n := 0
		for _, entry := range strings.Split(list, "#") {
			entry = strings.TrimSpace(entry)
			if entry == "" {
				continue
			}
			n++

			name, url, found := strings.Cut(entry, "$")
			if !found {
				name, url = "", name
			}
			if url == "" {
				continue
			}
			if name == "" {
				name = fmt.Sprintf("Episode %d", n)
			}

			episodes = append(episodes, Episode{Name: name, URL: url, Group: group})
		}
	}

	return episodes
}
