package config

// Default configuration values.
const (
	DefaultStressKeys       = 100_000
	DefaultStressSeed       = 1
	DefaultStressWorkers    = 4
	DefaultStressCheckEvery = 10_000
	DefaultStressKeySpace   = 10

	DefaultBenchRounds = 3

	DefaultHibernationThreshold = 0

	DefaultLogLevel = "info"
)

// DefaultBenchSizes are the map sizes measured by the bench command.
func DefaultBenchSizes() []int {
	return []int{1_000, 10_000, 100_000}
}
