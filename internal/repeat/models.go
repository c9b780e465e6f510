package repeat

// Capture is one ingested traffic file. Captures are immutable apart from
// their display name; playlists reference them by id only.
type Capture struct {
	ID               string `json:"id"`
	Filename         string `json:"filename"`
	Size             int64  `json:"size"`
	OriginalFilename string `json:"originalFilename"`
	Time             int64  `json:"time"`
}

// Settings control how a playlist (or a single capture inside one) is
// replayed.
type Settings struct {
	Speed     string `json:"speed"`     // "pcap", "topspeed" or a multiplier
	Interface string `json:"interface"` // target network interface
	Looping   string `json:"looping"`   // "none" | "forever"
}

// Playlist is a named, ordered grouping of captures. Name is the playlist's
// identity. Count is always derived from len(Pcaps) and never persisted.
type Playlist struct {
	Name         string              `json:"name"`
	Count        int                 `json:"count"`
	Pcaps        []string            `json:"pcaps"` // capture ids, in play order
	Settings     Settings            `json:"settings"`
	PcapSettings map[string]Settings `json:"pcapSettings"`
}

// NetworkInterface is a usable replay target device.
type NetworkInterface struct {
	Name      string   `json:"name"`
	Addresses []string `json:"addresses,omitempty"`
}

// Preferences is the runtime-editable server configuration.
type Preferences struct {
	PathToTcpreplay string `json:"pathToTcpreplay"`
	PcapsDir        string `json:"pcapsDir"`
}

// UploadedFile describes one accepted upload, as delivered by the upload
// collaborator. The engine assigns id and ingest time.
type UploadedFile struct {
	Filename         string
	OriginalFilename string
	Size             int64
}

const (
	allPlaylistName = "All"

	speedPcap     = "pcap"
	speedTopspeed = "topspeed"

	loopingNone    = "none"
	loopingForever = "forever"
)

func defaultSettings(iface string) Settings {
	return Settings{
		Speed:     speedPcap,
		Interface: iface,
		Looping:   loopingNone,
	}
}

func (pl *Playlist) clone() Playlist {
	cp := *pl
	cp.Pcaps = append([]string{}, pl.Pcaps...)
	cp.PcapSettings = make(map[string]Settings, len(pl.PcapSettings))
	for id, s := range pl.PcapSettings {
		cp.PcapSettings[id] = s
	}
	return cp
}
