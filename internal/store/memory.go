package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"seoaudit/internal/models"
)

// MemoryStore is the in-memory Repository used by tests and single-process
// audits. Each session owns its own mutex, so concurrent sessions never
// contend while writes within one session stay serialized.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionData
}

type sessionData struct {
	mu      sync.Mutex
	session models.CrawlSession
	nextID  int64
	pages   map[string]*models.Page        // keyed by URL
	edges   map[[2]int64]*models.Edge      // keyed by (sourceID, targetID)
	order   []string                       // page insertion order
	graph   *models.LinkGraphReport
	dups    *models.DuplicateContentReport
	issues  *models.IssueReport
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*sessionData)}
}

func (s *MemoryStore) data(sessionID string) (*sessionData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return d, nil
}

// CreateSession registers a new session.
func (s *MemoryStore) CreateSession(_ context.Context, session *models.CrawlSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.sessions[session.ID] = &sessionData{
		session: copied,
		nextID:  1,
		pages:   make(map[string]*models.Page),
		edges:   make(map[[2]int64]*models.Edge),
	}
	return nil
}

// GetSession returns a copy of the session row.
func (s *MemoryStore) GetSession(_ context.Context, sessionID string) (*models.CrawlSession, error) {
	d, err := s.data(sessionID)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	copied := d.session
	return &copied, nil
}

// UpdateSession persists the session row.
func (s *MemoryStore) UpdateSession(_ context.Context, session *models.CrawlSession) error {
	d, err := s.data(session.ID)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.session = *session
	return nil
}

// SavePage upserts a page by URL within its session.
func (s *MemoryStore) SavePage(_ context.Context, page *models.Page) error {
	d, err := s.data(page.SessionID)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := d.pages[page.URL]
	if !ok {
		page.ID = d.nextID
		d.nextID++
		page.CreatedAt = now
		page.UpdatedAt = now
		copied := *page
		d.pages[page.URL] = &copied
		d.order = append(d.order, page.URL)
		return nil
	}

	// A fetched page keeps its minimum BFS depth: placeholder rows take the
	// incoming depth, already-fetched rows are never deepened or shallowed.
	depth := existing.Depth
	if existing.Placeholder() {
		depth = page.Depth
	}
	page.ID = existing.ID
	page.CreatedAt = existing.CreatedAt
	page.UpdatedAt = now
	page.Depth = depth
	copied := *page
	d.pages[page.URL] = &copied
	return nil
}

// EnsurePage returns the existing page row for a URL or creates a
// placeholder row with the depth sentinel.
func (s *MemoryStore) EnsurePage(_ context.Context, sessionID, url string) (*models.Page, error) {
	d, err := s.data(sessionID)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if existing, ok := d.pages[url]; ok {
		copied := *existing
		return &copied, nil
	}

	now := time.Now().UTC()
	page := &models.Page{
		ID:        d.nextID,
		SessionID: sessionID,
		URL:       url,
		Depth:     models.PlaceholderDepth,
		CreatedAt: now,
		UpdatedAt: now,
	}
	d.nextID++
	d.pages[url] = page
	d.order = append(d.order, url)
	copied := *page
	return &copied, nil
}

// SaveEdge stores an edge once per (source, target) pair.
func (s *MemoryStore) SaveEdge(_ context.Context, edge *models.Edge) error {
	d, err := s.data(edge.SessionID)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	key := [2]int64{edge.SourceID, edge.TargetID}
	if existing, ok := d.edges[key]; ok {
		existing.Count++
		return nil
	}
	copied := *edge
	if copied.Count == 0 {
		copied.Count = 1
	}
	d.edges[key] = &copied
	return nil
}

// PagesForSession returns pages in insertion order.
func (s *MemoryStore) PagesForSession(_ context.Context, sessionID string) ([]*models.Page, error) {
	d, err := s.data(sessionID)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	pages := make([]*models.Page, 0, len(d.order))
	for _, url := range d.order {
		copied := *d.pages[url]
		pages = append(pages, &copied)
	}
	return pages, nil
}

// EdgesForSession returns edges ordered by (source, target) id.
func (s *MemoryStore) EdgesForSession(_ context.Context, sessionID string) ([]*models.Edge, error) {
	d, err := s.data(sessionID)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	edges := make([]*models.Edge, 0, len(d.edges))
	for _, edge := range d.edges {
		copied := *edge
		edges = append(edges, &copied)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].SourceID != edges[j].SourceID {
			return edges[i].SourceID < edges[j].SourceID
		}
		return edges[i].TargetID < edges[j].TargetID
	})
	return edges, nil
}

// SaveLinkGraphReport replaces the stored link-graph report.
func (s *MemoryStore) SaveLinkGraphReport(_ context.Context, report *models.LinkGraphReport) error {
	d, err := s.data(report.SessionID)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	copied := *report
	d.graph = &copied
	return nil
}

// SaveDuplicateReport replaces the stored duplicate-content report.
func (s *MemoryStore) SaveDuplicateReport(_ context.Context, report *models.DuplicateContentReport) error {
	d, err := s.data(report.SessionID)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	copied := *report
	d.dups = &copied
	return nil
}

// SaveIssueReport replaces the stored issue report.
func (s *MemoryStore) SaveIssueReport(_ context.Context, report *models.IssueReport) error {
	d, err := s.data(report.SessionID)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	copied := *report
	d.issues = &copied
	return nil
}

// LinkGraphReport returns the stored link-graph report, or nil when no
// analysis ran yet.
func (s *MemoryStore) LinkGraphReport(_ context.Context, sessionID string) (*models.LinkGraphReport, error) {
	d, err := s.data(sessionID)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.graph == nil {
		return nil, nil
	}
	copied := *d.graph
	return &copied, nil
}

// DuplicateReport returns the stored duplicate-content report.
func (s *MemoryStore) DuplicateReport(_ context.Context, sessionID string) (*models.DuplicateContentReport, error) {
	d, err := s.data(sessionID)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dups == nil {
		return nil, nil
	}
	copied := *d.dups
	return &copied, nil
}

// IssueReport returns the stored issue report.
func (s *MemoryStore) IssueReport(_ context.Context, sessionID string) (*models.IssueReport, error) {
	d, err := s.data(sessionID)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.issues == nil {
		return nil, nil
	}
	copied := *d.issues
	return &copied, nil
}
