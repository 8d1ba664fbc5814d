package config

// Version is the service version, overridden at build time via
// -ldflags "-X .../internal/config.Version=vX.Y.Z".
var Version = "0.1.0-dev"
