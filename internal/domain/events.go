package domain

import "time"

// EventType represents the type of domain event
type EventType string

// Event types
const (
	EventSearchStarted    EventType = "SearchStarted"
	EventSearchCompleted  EventType = "SearchCompleted"
	EventSearchNavigated  EventType = "SearchNavigated"
	EventSearchCleared    EventType = "SearchCleared"
	EventSearchDiscarded  EventType = "SearchDiscarded"
	EventDocumentLoaded   EventType = "DocumentLoaded"
	EventDocumentReloaded EventType = "DocumentReloaded"
	EventError            EventType = "Error"
	EventConfigLoaded     EventType = "ConfigLoaded"
	EventConfigSaved      EventType = "ConfigSaved"
	EventPageDiscovered   EventType = "PageDiscovered"
	EventScanCompleted    EventType = "ScanCompleted"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	Type() EventType
}

// SearchStartedEvent is emitted when a debounced search begins running
type SearchStartedEvent struct {
	Query      string
	Mode       string
	Generation uint64
}

func (e SearchStartedEvent) Type() EventType { return EventSearchStarted }

// SearchCompletedEvent is emitted when a current search result is applied
type SearchCompletedEvent struct {
	Query      string
	Mode       string
	MatchCount int
	Generation uint64
	Elapsed    time.Duration
}

func (e SearchCompletedEvent) Type() EventType { return EventSearchCompleted }

// SearchDiscardedEvent is emitted when a result arrives for a superseded query
type SearchDiscardedEvent struct {
	Query      string
	Generation uint64
}

func (e SearchDiscardedEvent) Type() EventType { return EventSearchDiscarded }

// SearchNavigatedEvent is emitted when next/prev moves the current match
type SearchNavigatedEvent struct {
	OldIndex int
	NewIndex int
	Total    int
}

func (e SearchNavigatedEvent) Type() EventType { return EventSearchNavigated }

// SearchClearedEvent is emitted when the query is emptied or escaped
type SearchClearedEvent struct{}

func (e SearchClearedEvent) Type() EventType { return EventSearchCleared }

// DocumentLoadedEvent is emitted once the page has been parsed
type DocumentLoadedEvent struct {
	Source string
}

func (e DocumentLoadedEvent) Type() EventType { return EventDocumentLoaded }

// DocumentReloadedEvent is emitted when the watched page is re-parsed
type DocumentReloadedEvent struct {
	Source  string
	Version uint64
}

func (e DocumentReloadedEvent) Type() EventType { return EventDocumentReloaded }

// ErrorEvent is emitted when an error occurs
type ErrorEvent struct {
	Message string
	Err     error
}

func (e ErrorEvent) Type() EventType { return EventError }

// ConfigLoadedEvent is emitted when configuration is loaded
type ConfigLoadedEvent struct {
	Path string
}

func (e ConfigLoadedEvent) Type() EventType { return EventConfigLoaded }

// ConfigSavedEvent is emitted when configuration is saved
type ConfigSavedEvent struct {
	Path string
}

func (e ConfigSavedEvent) Type() EventType { return EventConfigSaved }

// PageDiscoveredEvent is emitted when a directory scan finds a page
type PageDiscoveredEvent struct {
	Path string
}

func (e PageDiscoveredEvent) Type() EventType { return EventPageDiscovered }

// ScanCompletedEvent is emitted when a directory scan finishes
type ScanCompletedEvent struct {
	Roots      []string
	PagesFound int
}

func (e ScanCompletedEvent) Type() EventType { return EventScanCompleted }
