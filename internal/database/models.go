package database

import "time"

// HostEvent is one persisted hostname sighting: a captured packet whose
// decoder or annotators produced a hostname.
type HostEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Timestamp   time.Time `gorm:"index" json:"timestamp"`
	Interface   string    `gorm:"index" json:"interface"`
	SrcIP       string    `gorm:"index" json:"src_ip"`
	DstIP       string    `gorm:"index" json:"dst_ip"`
	SrcPort     uint16    `json:"src_port"`
	DstPort     uint16    `json:"dst_port"`
	Hostname    string    `gorm:"index" json:"hostname"`
	AppProtocol string    `json:"app_protocol"`
	AppInfo     string    `json:"app_info"`
	Category    string    `json:"category"`
	Watchlisted bool      `json:"watchlisted"`
	Label       string    `json:"label,omitempty"`
	WireLen     uint32    `json:"wire_len"`
}

// EventFilter narrows HostEvent queries. Zero fields are ignored.
type EventFilter struct {
	Since     time.Time
	IP        string
	Hostname  string
	Interface string
	Limit     int
}
