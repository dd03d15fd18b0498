package tether

// Version is the library version reported by the CLI and the inspection API.
const Version = "0.3.0"
