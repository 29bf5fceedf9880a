package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wordpath/learning-service/internal/cache"
	"github.com/wordpath/learning-service/internal/curriculum"
	"github.com/wordpath/learning-service/internal/models"
	"github.com/wordpath/learning-service/internal/repositories"
	"github.com/wordpath/learning-service/internal/utils"
)

const unitOverviewTTL = 5 * time.Minute

func unitOverviewCacheKey(studentID string, unitID uint) string {
	return fmt.Sprintf("unit_overview:%s:%d", studentID, unitID)
}

// ProgressService is the read-side rollup over persisted round records. It
// never mutates anything.
type ProgressService interface {
	UnitOverview(ctx context.Context, unitID uint, studentID string, actor models.Actor) (*UnitOverview, error)
}

// UnitOverview summarizes one student's standing in a unit. AverageScore is
// nil when no round has a completed attempt; a unit with zero rounds is
// vacuously complete.
type UnitOverview struct {
	UnitID          uint            `json:"unit_id"`
	Title           string          `json:"title"`
	StudentID       string          `json:"student_id"`
	RoundCount      int             `json:"round_count"`
	CompletedRounds int             `json:"completed_rounds"`
	Complete        bool            `json:"complete"`
	AverageScore    *float64        `json:"average_score"`
	Rounds          []RoundOverview `json:"rounds"`
}

type RoundOverview struct {
	RoundID      uint   `json:"round_id"`
	Title        string `json:"title"`
	Completed    bool   `json:"completed"`
	Score        *int   `json:"score,omitempty"`
	AttemptCount *int   `json:"attempt_count,omitempty"`
}

type progressService struct {
	repo       repositories.Repository
	curriculum *curriculum.Store
	cache      cache.CacheService
	logger     utils.Logger
}

func NewProgressService(
	repo repositories.Repository,
	store *curriculum.Store,
	cacheService cache.CacheService,
	logger utils.Logger,
) ProgressService {
	return &progressService{
		repo:       repo,
		curriculum: store,
		cache:      cacheService,
		logger:     logger,
	}
}

func (s *progressService) UnitOverview(ctx context.Context, unitID uint, studentID string, actor models.Actor) (*UnitOverview, error) {
	if !actor.IsTeacher() && actor.ID != studentID {
		return nil, NewPermissionError(actor.ID, "unit_overview", "read", "students may only read their own progress")
	}

	key := unitOverviewCacheKey(studentID, unitID)
	var cached UnitOverview
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Unit overview cache read failed", "key", key, "error", err)
	}

	unit, err := s.curriculum.Unit(unitID)
	if err != nil {
		return nil, ErrUnitNotFound
	}

	rows, err := s.repo.Progress().ListByUnit(ctx, studentID, unitID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unit progress: %w", err)
	}
	byRound := make(map[uint]*models.StudentRoundProgress, len(rows))
	for _, row := range rows {
		byRound[row.RoundID] = row
	}

	overview := &UnitOverview{
		UnitID:     unitID,
		Title:      unit.Title,
		StudentID:  studentID,
		RoundCount: len(unit.RoundIDs),
		Rounds:     make([]RoundOverview, 0, len(unit.RoundIDs)),
	}

	sum := 0
	for _, roundID := range unit.RoundIDs {
		round, err := s.curriculum.Round(roundID)
		if err != nil {
			return nil, fmt.Errorf("unit references unknown round %d: %w", roundID, err)
		}
		ro := RoundOverview{RoundID: roundID, Title: round.Title}
		if row, ok := byRound[roundID]; ok && row.Completed {
			score := row.Score
			count := row.AttemptCount
			ro.Completed = true
			ro.Score = &score
			ro.AttemptCount = &count
			overview.CompletedRounds++
			sum += score
		}
		overview.Rounds = append(overview.Rounds, ro)
	}

	// Rounds without a completed attempt are excluded from the average, not
	// counted as zero. A unit with no rounds is complete with no average.
	overview.Complete = overview.CompletedRounds == overview.RoundCount
	if overview.CompletedRounds > 0 {
		avg := float64(sum) / float64(overview.CompletedRounds)
		overview.AverageScore = &avg
	}

	if err := s.cache.Set(ctx, key, overview, unitOverviewTTL); err != nil {
		s.logger.Warn("Unit overview cache write failed", "key", key, "error", err)
	}

	return overview, nil
}
