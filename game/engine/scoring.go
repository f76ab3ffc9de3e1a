package engine

import "math"

// Score converts a guess into a distance and a 0-5000 score on the given map.
//
// Any distance within PerfectRadius scores MaxScore. Beyond it the score falls
// off over half the mean map extent, shaped by ScoreExponent. Missing points or
// an unknown map yield a zero result instead of an error so a single bad
// catalog entry cannot break a round in progress.
func Score(guess, truth *Point, mapName string, catalog *Catalog) ScoreResult {
	desc, ok := catalog.Map(mapName)
	if guess == nil || truth == nil || !ok {
		logger().Warn().
			Bool("guess", guess != nil).
			Bool("truth", truth != nil).
			Str("map", mapName).
			Msg("scoring skipped: missing data")
		return ScoreResult{}
	}
	return ScoreOnMap(*guess, *truth, desc)
}

// ScoreOnMap scores two points against an explicit map descriptor.
func ScoreOnMap(guess, truth Point, desc MapDescriptor) ScoreResult {
	distance := Distance(guess, truth)
	if distance <= PerfectRadius {
		return ScoreResult{Distance: distance, Score: MaxScore}
	}

	end := desc.Bounds.End
	maxDistance := FalloffScale * (end[0] + end[1]) / 2
	adjustedMax := math.Max(1, maxDistance-PerfectRadius)

	ratio := clamp(1-(distance-PerfectRadius)/adjustedMax, 0, 1)
	score := int(math.Round(MaxScore * math.Pow(ratio, ScoreExponent)))

	return ScoreResult{Distance: distance, Score: score}
}
