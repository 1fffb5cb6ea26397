package domain

// KeyPrefix namespaces every key lshdex writes to a shared key-value store.
const KeyPrefix = "lshdex:"
