package emotion

// ResourceState is simulated hardware telemetry derived from emotion. It is
// display-only: nothing schedules or blocks on these values.
type ResourceState struct {
	ComputeRate    float64 `json:"computeRate"`
	MemoryPressure float64 `json:"memoryPressure"`
	Throughput     float64 `json:"throughput"`
	Load           float64 `json:"load"`
}

// Baseline is the resting resource state before any emotion event.
func Baseline() ResourceState {
	return ResourceState{ComputeRate: 1.0, MemoryPressure: 1.0, Throughput: 1.0, Load: 0.5}
}

type resourceCoeffs struct {
	compute float64
	memory  float64
	thru    float64
}

// Per-emotion linear coefficients: dimension = 1.0 + intensity*coeff,
// load = intensity.
var resourceTable = map[string]resourceCoeffs{
	Happy:     {compute: 0.5, memory: 0.3, thru: 0.4},
	Sad:       {compute: -0.3, memory: 0.2, thru: -0.4},
	Angry:     {compute: 0.6, memory: 0.1, thru: 0.3},
	Fearful:   {compute: 0.7, memory: 0.0, thru: 0.5},
	Surprised: {compute: 0.8, memory: 0.4, thru: 0.6},
	Disgusted: {compute: -0.2, memory: -0.1, thru: -0.3},
}

// ResourceFor maps an emotion and intensity to a resource state. Emotions
// without their own row (including euphoric, depressed and content) use the
// happy coefficients.
func ResourceFor(emotion string, intensity float64) ResourceState {
	c, ok := resourceTable[emotion]
	if !ok {
		c = resourceTable[Happy]
	}
	return ResourceState{
		ComputeRate:    1.0 + intensity*c.compute,
		MemoryPressure: 1.0 + intensity*c.memory,
		Throughput:     1.0 + intensity*c.thru,
		Load:           intensity,
	}
}
