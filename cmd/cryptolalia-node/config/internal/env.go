package internal

// EnvPrefix is a prefix of ENV variables related
// to node configuration.
const EnvPrefix = "cryptolalia"

// EnvSeparator is a section separator in ENV variables.
const EnvSeparator = "_"
