// Package engine provides the core cloud propagation simulation.
//
// The engine package implements:
//   - Terrain grid construction and deep-copy snapshots
//   - Random placement of airports and clouds from an injected random source
//   - Day-by-day cloud propagation with the new-cloud suspension rule
//   - Arrival tracking for the first and the last airport covered
//
// Core Types:
//
// Grid is a row-major slice of Cells. Engine owns a Grid for the duration of a
// run and advances it one day per Step. Result carries the per-day history
// together with the arrival days and the terrain dimensions.
//
// Usage:
//
//	rng := engine.NewSource(42)
//	result, err := engine.Simulate(engine.Params{
//		Airports: 3,
//		Clouds:   4,
//		Height:   10,
//		Width:    10,
//	}, rng)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(result.AllAirports.Day)
//
// Propagation Rules:
//
// Every day starts by clearing the new-cloud flag on all cells. Cells are then
// scanned in index order and every cloud that existed before the day spreads
// to its up, right, down and left neighbours. Neighbours are addressed by flat
// index arithmetic and only checked against the slice bounds, so a cloud on
// the left edge reaches the last cell of the previous row. An airport is
// counted as reached before it is overwritten by cloud. Clouds created during
// a day do not spread until the next day.
package engine
