package simulate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"shopfloor-planner/core/model"
)

func TestEstimateDeliveryIdleShop(t *testing.T) {
	product := newProduct("WIDGET-A")
	reader := &fakeSnapshot{
		products: map[uuid.UUID]model.Product{product.ID: product},
		lines:    []model.ProductionLine{newLine("Line 1")},
	}
	s := newSimulator(reader)

	est, err := s.EstimateDelivery(context.Background(), product.ID, 120)
	if err != nil {
		t.Fatalf("EstimateDelivery: %v", err)
	}

	// 2 production hours from an idle Monday 09:00 shop.
	if !est.EstimatedCompletion.Equal(monday(11)) {
		t.Errorf("EstimatedCompletion = %v, want %v", est.EstimatedCompletion, monday(11))
	}
	if !est.Earliest.Before(est.EstimatedCompletion) {
		t.Errorf("earliest %v not before likely %v", est.Earliest, est.EstimatedCompletion)
	}
	if !est.Latest.After(est.EstimatedCompletion) {
		t.Errorf("latest %v not after likely %v", est.Latest, est.EstimatedCompletion)
	}
	if est.Confidence != 75 {
		t.Errorf("confidence without learned data = %v, want 75", est.Confidence)
	}
	if len(est.Notes) != 1 || !strings.Contains(est.Notes[0], "standard cycle time") {
		t.Errorf("unexpected notes: %v", est.Notes)
	}
}

func TestEstimateDeliveryWaitsForBusyLine(t *testing.T) {
	product := newProduct("WIDGET-A")
	line := newLine("Line 1")
	reader := &fakeSnapshot{
		products: map[uuid.UUID]model.Product{product.ID: product},
		lines:    []model.ProductionLine{line},
		jobs: []model.Job{{
			ProductionLineID: line.ID,
			ProductSKU:       "WIDGET-B",
			PlannedStart:     monday(9),
			PlannedEnd:       monday(14),
			Status:           model.JobStatusPlanned,
		}},
	}
	s := newSimulator(reader)

	est, err := s.EstimateDelivery(context.Background(), product.ID, 60)
	if err != nil {
		t.Fatalf("EstimateDelivery: %v", err)
	}
	// The line frees up at 14:00; one production hour lands at 15:00.
	if !est.EstimatedCompletion.Equal(monday(15)) {
		t.Errorf("EstimatedCompletion = %v, want %v", est.EstimatedCompletion, monday(15))
	}
}

func TestEstimateDeliveryLearnedCycleTime(t *testing.T) {
	product := newProduct("WIDGET-A")
	learned := 0.5
	product.LearnedCycleTime = &learned
	reader := &fakeSnapshot{
		products: map[uuid.UUID]model.Product{product.ID: product},
		lines:    []model.ProductionLine{newLine("Line 1")},
	}
	s := newSimulator(reader)

	est, err := s.EstimateDelivery(context.Background(), product.ID, 100)
	if err != nil {
		t.Fatalf("EstimateDelivery: %v", err)
	}
	if est.Confidence != 90 {
		t.Errorf("confidence with learned data = %v, want 90", est.Confidence)
	}
	if len(est.Notes) != 1 || !strings.Contains(est.Notes[0], "historical data") {
		t.Errorf("unexpected notes: %v", est.Notes)
	}
}

func TestEstimateDeliveryErrors(t *testing.T) {
	product := newProduct("WIDGET-A")

	t.Run("invalid quantity", func(t *testing.T) {
		s := newSimulator(&fakeSnapshot{})
		_, err := s.EstimateDelivery(context.Background(), product.ID, 0)
		var simErr *SimulationError
		if !errors.As(err, &simErr) {
			t.Fatalf("expected SimulationError, got %v", err)
		}
	})

	t.Run("unknown product", func(t *testing.T) {
		s := newSimulator(&fakeSnapshot{products: map[uuid.UUID]model.Product{}})
		_, err := s.EstimateDelivery(context.Background(), uuid.New(), 10)
		var simErr *SimulationError
		if !errors.As(err, &simErr) || !strings.Contains(err.Error(), "not found") {
			t.Fatalf("expected not-found SimulationError, got %v", err)
		}
	})

	t.Run("no lines", func(t *testing.T) {
		s := newSimulator(&fakeSnapshot{products: map[uuid.UUID]model.Product{product.ID: product}})
		_, err := s.EstimateDelivery(context.Background(), product.ID, 10)
		var simErr *SimulationError
		if !errors.As(err, &simErr) {
			t.Fatalf("expected SimulationError, got %v", err)
		}
	})
}
