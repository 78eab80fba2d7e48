package urls

// Repository is the project home shown in the app header.
const Repository = "github.com/muurk/imagegen"

// Documentation URLs for guides and troubleshooting
// All URLs point to the documentation site at https://muurk.github.io/imagegen/

// GatewaySetup covers running imagegen-server: environment variables,
// the .env file, predefined endpoints and TLS.
const GatewaySetup = "https://muurk.github.io/imagegen/gateway/setup/"

// Discovery explains mDNS advertisement and what blocks it on some networks.
const Discovery = "https://muurk.github.io/imagegen/gateway/discovery/"

// ClientConfig documents the client config file, presets and the
// IMAGEGEN_* overrides.
const ClientConfig = "https://muurk.github.io/imagegen/client/configuration/"

// TroubleshootingGuide provides solutions to common connection and
// generation failures.
const TroubleshootingGuide = "https://muurk.github.io/imagegen/troubleshooting/"
