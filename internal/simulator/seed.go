package simulator

// pathSeed derives a per-path RNG seed from the base seed and the path
// index. Paths get well-separated streams via a splitmix64 step, and the
// derivation depends only on (base, index) so any worker layout replays
// the exact same draws.
func pathSeed(base uint64, path int) uint64 {
	z := base + uint64(path+1)*0x9E3779B97F4A7C15
	z = (z ^ (z >> 30)) * 0xBF58476D1CE4E5B9
	z = (z ^ (z >> 27)) * 0x94D049BB133111EB
	return z ^ (z >> 31)
}
