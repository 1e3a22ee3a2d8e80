// Package hyper defines the data API the widgets read from: sites, drive
// files and indexed records.
package hyper

import (
	"context"
	"time"
)

const (
	PrivateURL = "hyper://private/"
	SystemURL  = "hyper://system/"

	SubscriptionsIndex = "beaker/index/subscriptions"
	AnnotationsIndex   = "beaker/index/annotations"
)

// SiteRef is the short form of a site used on records.
type SiteRef struct {
	URL   string
	Title string
}

type Site struct {
	URL           string
	Origin        string
	Title         string
	Description   string
	Writable      bool
	Subscriptions []Record
	// Unknown marks a site only seen through someone's subscription.
	Unknown bool
}

// SubscriberCount is the number of subscription records attached to the site.
func (s Site) SubscriberCount() int { return len(s.Subscriptions) }

// Record is an indexed record such as a subscription or an annotation.
type Record struct {
	URL   string
	Index string
	Site  SiteRef
	Href  string
	Title string
	Value string
	Ctime time.Time
}

// Candidate is a drive file returned by a file query.
type Candidate struct {
	URL      string
	Drive    string
	Path     string
	Ctime    time.Time
	Mtime    time.Time
	Metadata map[string]string
}

type DriveInfo struct {
	URL         string
	Title       string
	Description string
	Writable    bool
}

type SiteFilter struct {
	Search string
	// Writable restricts by writability when non-nil.
	Writable *bool
}

type RecordFilter struct {
	Index string
	Href  string
}

type Sort string

const (
	SortCtime Sort = "ctime"
	SortMtime Sort = "mtime"
	SortName  Sort = "name"
)

// FileQuery selects files across drives. Paths are glob patterns such as
// "/blog/*.md". Limit <= 0 means unlimited.
type FileQuery struct {
	Drives  []string
	Paths   []string
	Sort    Sort
	Reverse bool
	Limit   int
	Offset  int
}

type Subscription struct {
	Href  string
	Title string
	Site  string
}

type Database interface {
	ListSites(ctx context.Context, filter SiteFilter, limit int) ([]Site, error)
	ListRecords(ctx context.Context, filter RecordFilter, limit int) ([]Record, error)
	GetSite(ctx context.Context, origin string) (Site, error)
}

type Drives interface {
	Query(ctx context.Context, q FileQuery) ([]Candidate, error)
	ReadFile(ctx context.Context, url string) (string, error)
	GetInfo(ctx context.Context, url string) (DriveInfo, error)
}

type Subscriptions interface {
	Add(ctx context.Context, sub Subscription) error
	Remove(ctx context.Context, href, site string) error
}

// API is everything the widgets need from the host.
type API interface {
	Database
	Drives
	Subscriptions
}
