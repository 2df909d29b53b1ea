package warp

import (
	"image"
	"math"
	"testing"
)

const (
	eps = 0.00001
)

func TestEuclideanDistance(t *testing.T) {
	p1 := Point{X: 341, Y: 264}
	p2 := Point{X: 421, Y: 427}
	correnctAnswer := 181.57367
	answer := p1.DistanceTo(p2)
	if math.Abs(answer-correnctAnswer) > eps {
		t.Errorf("Wrong answer: %v, correct answer: %v", answer, correnctAnswer)
	}
}

func TestPointRound(t *testing.T) {
	pt := NewPoint(10.49, 49.5).Round()
	if pt != (image.Point{X: 10, Y: 50}) {
		t.Errorf("Wrong rounding: %v", pt)
	}
	back := NewPointFrom(pt)
	if back.X != 10 || back.Y != 50 {
		t.Errorf("Wrong conversion: %v", back)
	}
}

func TestBoundingRect(t *testing.T) {
	rect := BoundingRect([]Point{{X: 10, Y: 12}, {X: 50, Y: 8}, {X: 48, Y: 50}, {X: 9, Y: 47}})
	correctAnswer := NewRect(9, 8, 41, 42)
	if rect != correctAnswer {
		t.Errorf("Wrong bounding rectangle: %+v, correct answer: %+v", rect, correctAnswer)
	}
	center := rect.Center()
	if math.Abs(center.X-29.5) > eps || math.Abs(center.Y-29) > eps {
		t.Errorf("Wrong center: %+v", center)
	}
	if empty := BoundingRect(nil); empty != (Rectangle{}) {
		t.Errorf("Bounding rectangle of no points should be empty, got %+v", empty)
	}
}

func TestIoU(t *testing.T) {
	r1 := NewRect(0, 0, 10, 10)
	if iou := IoU(r1, r1); math.Abs(iou-1.0) > eps {
		t.Errorf("IoU of rectangle with itself should be 1, got %f", iou)
	}
	r2 := NewRect(5, 0, 10, 10)
	correctAnswer := 50.0 / 150.0
	if iou := IoU(r1, r2); math.Abs(iou-correctAnswer) > eps {
		t.Errorf("Wrong IoU: %f, correct answer: %f", iou, correctAnswer)
	}
	r3 := NewRect(20, 20, 5, 5)
	if iou := IoU(r1, r3); iou != 0 {
		t.Errorf("IoU of disjoint rectangles should be 0, got %f", iou)
	}
}
