package envexec

// ru_maxrss is reported in bytes
const rssUnit Size = 1
