package domain

// KeyPrefix is the storage key prefix shared by all repositories.
const KeyPrefix = "lorelink:"
