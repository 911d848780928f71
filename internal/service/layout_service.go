package service

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edukit/paperflow-backend/internal/config"
	"github.com/edukit/paperflow-backend/internal/layout"
	"github.com/edukit/paperflow-backend/internal/model"
)

// LayoutService owns one layout coordinator per exam-student pair. Each
// device reports its own rendered heights, so layouts never cross
// between students.
type LayoutService struct {
	cfg config.LayoutConfig
	log zerolog.Logger

	mu           sync.Mutex
	coordinators map[string]*layout.Coordinator
}

// NewLayoutService creates a new LayoutService.
func NewLayoutService(cfg config.LayoutConfig, log zerolog.Logger) *LayoutService {
	return &LayoutService{
		cfg:          cfg,
		log:          log.With().Str("component", "layout_service").Logger(),
		coordinators: make(map[string]*layout.Coordinator),
	}
}

// Open creates (or replaces the selection of) the pair's coordinator
// from the assembled paper and registers the publish sink. The initial
// provisional layout publishes synchronously before Open returns.
func (s *LayoutService) Open(examID uuid.UUID, studentID int, paper *model.ExamPaper, publish func(layout.Document)) {
	items := make([]layout.Item, 0, len(paper.Items))
	for _, it := range paper.Items {
		items = append(items, layout.Item{
			ID:       it.ID,
			Kind:     layout.ItemKind(it.Kind),
			ParentID: it.ParentID,
			Text:     it.Text,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := registryKey(examID, studentID)
	coord, ok := s.coordinators[key]
	if !ok {
		coord = layout.NewCoordinator(layout.CoordinatorConfig{
			PrimaryLimit:    s.cfg.PrimaryLimit,
			PrimaryFallback: s.cfg.PrimaryFallback(),
			ChunkLimit:      s.cfg.ChunkLimit,
			ChunkFallback:   s.cfg.ChunkFallbackHeight,
			DebounceWindow:  s.cfg.DebounceWindow,
		}, publish)
		s.coordinators[key] = coord
	}
	coord.SetSelection(items)
}

// ReportHeight records one rendered-height measurement.
func (s *LayoutService) ReportHeight(examID uuid.UUID, studentID int, itemID string, height float64) error {
	coord, err := s.coordinator(examID, studentID)
	if err != nil {
		return err
	}
	coord.ReportHeight(itemID, height)
	return nil
}

// SetInteractionLocked toggles the drag-control gate.
func (s *LayoutService) SetInteractionLocked(examID uuid.UUID, studentID int, locked bool) error {
	coord, err := s.coordinator(examID, studentID)
	if err != nil {
		return err
	}
	coord.SetInteractionLocked(locked)
	return nil
}

// SetEditing marks an item's inline editor open or closed. Closing the
// editor forces an immediate recompute so the layout reflects the final
// edited content.
func (s *LayoutService) SetEditing(examID uuid.UUID, studentID int, itemID string, editing bool) error {
	coord, err := s.coordinator(examID, studentID)
	if err != nil {
		return err
	}
	coord.SetEditing(itemID, editing)
	if !editing {
		coord.ForceRecompute()
	}
	return nil
}

// Invalidate marks the layout provisional after a layout-affecting
// control change (font size, minimum box height).
func (s *LayoutService) Invalidate(examID uuid.UUID, studentID int) error {
	coord, err := s.coordinator(examID, studentID)
	if err != nil {
		return err
	}
	coord.Invalidate()
	return nil
}

// Document returns the pair's most recently computed layout.
func (s *LayoutService) Document(examID uuid.UUID, studentID int) (layout.Document, error) {
	coord, err := s.coordinator(examID, studentID)
	if err != nil {
		return layout.Document{}, err
	}
	return coord.Document(), nil
}

// Close releases the pair's coordinator (device disconnected or session
// submitted).
func (s *LayoutService) Close(examID uuid.UUID, studentID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := registryKey(examID, studentID)
	if coord, ok := s.coordinators[key]; ok {
		coord.Close()
		delete(s.coordinators, key)
	}
}

// Shutdown releases every live coordinator.
func (s *LayoutService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, coord := range s.coordinators {
		coord.Close()
		delete(s.coordinators, key)
	}
}

func (s *LayoutService) coordinator(examID uuid.UUID, studentID int) (*layout.Coordinator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	coord, ok := s.coordinators[registryKey(examID, studentID)]
	if !ok {
		return nil, ErrNoActiveSession
	}
	return coord, nil
}
