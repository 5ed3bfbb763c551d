package mprisserver

import (
	"github.com/godbus/dbus/v5"

	"go2tv.app/castpilot/castadapter"
)

// metadataToMap converts adapter metadata to the wire shape the
// Metadata property and GetTracksMetadata carry. Key names and value
// types follow the MPRIS metadata conventions, numeric track fields
// travel as int32 and the length as int64 microseconds. A track number
// the device never reported stays out of the map entirely.
func metadataToMap(m castadapter.Metadata) map[string]dbus.Variant {
	out := map[string]dbus.Variant{
		"mpris:trackid":     dbus.MakeVariant(dbus.ObjectPath(m.TrackID)),
		"mpris:length":      dbus.MakeVariant(m.Length),
		"mpris:artUrl":      dbus.MakeVariant(m.ArtURL),
		"xesam:url":         dbus.MakeVariant(m.URL),
		"xesam:title":       dbus.MakeVariant(m.Title),
		"xesam:artist":      dbus.MakeVariant(m.Artists),
		"xesam:album":       dbus.MakeVariant(m.Album),
		"xesam:albumArtist": dbus.MakeVariant(m.AlbumArtists),
		"xesam:discNumber":  dbus.MakeVariant(int32(m.DiscNumber)),
		"xesam:comment":     dbus.MakeVariant(m.Comments),
	}
	if m.TrackNumber > 0 {
		out["xesam:trackNumber"] = dbus.MakeVariant(int32(m.TrackNumber))
	}
	return out
}
