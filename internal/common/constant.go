package common

// AuthHeaderName is the HTTP header used to carry the bearer token on
// outbound requests.
const AuthHeaderName = "Authorization"

// LocationPrefix separates a DID from its log pointer in DID-anchored
// write responses ("did:oyd:<did>@<pointer>").
const LocationPrefix = "@"

// DIDMethodPrefix is prepended to container-generated DIDs.
const DIDMethodPrefix = "did:oyd:"
