package curriculum

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/wordpath/learning-service/internal/models"
)

var (
	ErrWordNotFound  = errors.New("word not found")
	ErrRoundNotFound = errors.New("round not found")
	ErrUnitNotFound  = errors.New("unit not found")
	ErrTestNotFound  = errors.New("online test not found")
)

//go:embed data/curriculum.json
var curriculumData []byte

type dataset struct {
	Words       []models.Word       `json:"words"`
	Rounds      []models.Round      `json:"rounds"`
	Units       []models.Unit       `json:"units"`
	OnlineTests []models.OnlineTest `json:"online_tests"`
}

// Store is the read-mostly curriculum content set. Words, rounds and units
// are immutable after load; online tests are teacher-defined and can be
// registered at runtime.
type Store struct {
	words  map[uint]*models.Word
	rounds map[uint]*models.Round
	units  map[uint]*models.Unit

	mu         sync.RWMutex
	tests      map[uint]*models.OnlineTest
	nextTestID uint
}

// Load builds the store from the embedded dataset.
func Load() (*Store, error) {
	return LoadBytes(curriculumData)
}

func LoadBytes(data []byte) (*Store, error) {
	var ds dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to parse curriculum data: %w", err)
	}

	s := &Store{
		words:      make(map[uint]*models.Word, len(ds.Words)),
		rounds:     make(map[uint]*models.Round, len(ds.Rounds)),
		units:      make(map[uint]*models.Unit, len(ds.Units)),
		tests:      make(map[uint]*models.OnlineTest, len(ds.OnlineTests)),
		nextTestID: 1,
	}

	for i := range ds.Words {
		w := ds.Words[i]
		s.words[w.ID] = &w
	}
	for i := range ds.Rounds {
		r := ds.Rounds[i]
		if len(r.WordIDs) == 0 {
			return nil, fmt.Errorf("round %d has no words", r.ID)
		}
		for _, wid := range r.WordIDs {
			if _, ok := s.words[wid]; !ok {
				return nil, fmt.Errorf("round %d references unknown word %d", r.ID, wid)
			}
		}
		s.rounds[r.ID] = &r
	}
	for i := range ds.Units {
		u := ds.Units[i]
		for _, rid := range u.RoundIDs {
			if _, ok := s.rounds[rid]; !ok {
				return nil, fmt.Errorf("unit %d references unknown round %d", u.ID, rid)
			}
		}
		s.units[u.ID] = &u
	}
	for i := range ds.OnlineTests {
		t := ds.OnlineTests[i]
		s.tests[t.ID] = &t
		if t.ID >= s.nextTestID {
			s.nextTestID = t.ID + 1
		}
	}

	return s, nil
}

func (s *Store) Word(id uint) (*models.Word, error) {
	w, ok := s.words[id]
	if !ok {
		return nil, ErrWordNotFound
	}
	return w, nil
}

func (s *Store) Round(id uint) (*models.Round, error) {
	r, ok := s.rounds[id]
	if !ok {
		return nil, ErrRoundNotFound
	}
	return r, nil
}

func (s *Store) Unit(id uint) (*models.Unit, error) {
	u, ok := s.units[id]
	if !ok {
		return nil, ErrUnitNotFound
	}
	return u, nil
}

// RoundWords resolves a round's word list in curriculum order.
func (s *Store) RoundWords(roundID uint) ([]*models.Word, error) {
	r, err := s.Round(roundID)
	if err != nil {
		return nil, err
	}
	words := make([]*models.Word, 0, len(r.WordIDs))
	for _, wid := range r.WordIDs {
		words = append(words, s.words[wid])
	}
	return words, nil
}

func (s *Store) OnlineTest(id uint) (*models.OnlineTest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tests[id]
	if !ok {
		return nil, ErrTestNotFound
	}
	return t, nil
}

// TestWords resolves a test's word list in definition order.
func (s *Store) TestWords(testID uint) ([]*models.Word, error) {
	t, err := s.OnlineTest(testID)
	if err != nil {
		return nil, err
	}
	words := make([]*models.Word, 0, len(t.WordIDs))
	for _, wid := range t.WordIDs {
		w, ok := s.words[wid]
		if !ok {
			return nil, fmt.Errorf("test %d references unknown word %d: %w", testID, wid, ErrWordNotFound)
		}
		words = append(words, w)
	}
	return words, nil
}

// RegisterOnlineTest assigns an id and adds a teacher-defined test.
func (s *Store) RegisterOnlineTest(test *models.OnlineTest) (*models.OnlineTest, error) {
	for _, wid := range test.WordIDs {
		if _, ok := s.words[wid]; !ok {
			return nil, fmt.Errorf("test references unknown word %d: %w", wid, ErrWordNotFound)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := *test
	t.ID = s.nextTestID
	s.nextTestID++
	s.tests[t.ID] = &t
	return &t, nil
}

func (s *Store) Units() []*models.Unit {
	units := make([]*models.Unit, 0, len(s.units))
	for _, u := range s.units {
		units = append(units, u)
	}
	return units
}
