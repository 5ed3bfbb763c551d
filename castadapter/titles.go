package castadapter

const maxTitles = 3

// Titles carries the three labels desktop controllers display. The
// device rarely reports a real artist or album, so the remaining title
// candidates fill the slots in priority order instead.
type Titles struct {
	Title  string
	Artist string
	Album  string
}

// Titles collects up to three labels for the current media. Candidates
// are tried in order: media title, series title, subtitle, artist,
// album, then the receiver application's display name. With no media at
// all the product name fills the first slot.
func (a *Adapter) Titles() Titles {
	var titles []string
	add := func(s string) {
		if s != "" && len(titles) < maxTitles {
			titles = append(titles, s)
		}
	}

	if status := a.dev.MediaStatus(); status != nil {
		add(status.Metadata.Title)
		add(status.Metadata.SeriesTitle)
		add(status.Metadata.Subtitle)
		add(status.Metadata.Artist)
		add(status.Metadata.AlbumName)
	}
	add(a.dev.AppDisplayName())

	if len(titles) == 0 {
		titles = append(titles, ProductName)
	}

	t := Titles{Title: titles[0]}
	if len(titles) > 1 {
		t.Artist = titles[1]
	}
	if len(titles) > 2 {
		t.Album = titles[2]
	}

	return t
}
