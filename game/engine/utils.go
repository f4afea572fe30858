package engine

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Distance returns the Euclidean distance between two positions
func Distance(from, to Position) float64 {
	return floats.Distance(
		[]float64{float64(from.X), float64(from.Y)},
		[]float64{float64(to.X), float64(to.Y)},
		2,
	)
}

// ManhattanDistance calculates the Manhattan distance between two positions
func ManhattanDistance(from, to Position) int {
	dx := from.X - to.X
	if dx < 0 {
		dx = -dx
	}
	dy := from.Y - to.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}

// NearestCharger finds the closest remaining charging station by Manhattan distance
func NearestCharger(s Snapshot) (Position, int, bool) {
	minDistance := -1
	var nearest Position
	for _, c := range s.Chargers {
		d := ManhattanDistance(s.CarPos, c)
		if minDistance == -1 || d < minDistance {
			minDistance = d
			nearest = c
		}
	}
	return nearest, minDistance, minDistance >= 0
}

// AnalyzeBatteryRisk assesses how many steps of battery remain against the
// distance to the nearest unused station.
func AnalyzeBatteryRisk(s Snapshot, decrement float64) string {
	if s.Battery <= BatteryEpsilon {
		return "CRITICAL: Battery empty!"
	}
	if decrement <= 0 {
		return "SAFE: Battery sufficient"
	}

	stepsLeft := int(s.Battery / decrement)

	_, chargerDistance, found := NearestCharger(s)
	if !found {
		if stepsLeft <= ManhattanDistance(s.CarPos, s.DestinationPos) {
			return "DANGER: No chargers left and not enough battery to finish!"
		}
		return "WARNING: No chargers available!"
	}

	switch {
	case stepsLeft <= chargerDistance:
		return "DANGER: Insufficient battery to reach nearest charger!"
	case stepsLeft <= chargerDistance+2:
		return "CAUTION: Low battery, prioritize charging"
	case s.Battery <= s.MaxBattery/3:
		return "LOW: Consider charging soon"
	}

	return "SAFE: Battery sufficient"
}

func (e *Environment) randomPosition() Position {
	return Position{
		X: e.rng.Intn(e.config.GridSize),
		Y: e.rng.Intn(e.config.GridSize),
	}
}

// sampleFree draws uniform cells until one is not in taken, giving up after
// MaxPlacementAttempts draws.
func (e *Environment) sampleFree(taken []Position) (Position, error) {
	for attempt := 0; attempt < e.config.MaxPlacementAttempts; attempt++ {
		p := e.randomPosition()
		if !slices.Contains(taken, p) {
			return p, nil
		}
	}
	return Position{}, fmt.Errorf("%w after %d attempts", ErrPlacementExhausted, e.config.MaxPlacementAttempts)
}
