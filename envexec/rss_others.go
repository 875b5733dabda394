//go:build !darwin

package envexec

// ru_maxrss is reported in KiB
const rssUnit Size = 1 << 10
