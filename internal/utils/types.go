package utils

// Int64Ptr returns a pointer to an int64 (helper function)
func Int64Ptr(v int64) *int64 {
	return &v
}

// Float64Ptr returns a pointer to a float64 (helper function)
func Float64Ptr(f float64) *float64 {
	return &f
}
