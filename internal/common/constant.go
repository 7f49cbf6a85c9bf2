package common

// DeviceIDHeaderName is the HTTP header used to identify the submitting
// device on every call to the remote authority.
const DeviceIDHeaderName = "X-Device-Id"

// IdempotencyKeyHeaderName carries the client-generated idempotency key on
// action submissions, so a retried request has at most one server-side effect.
const IdempotencyKeyHeaderName = "X-Idempotency-Key"
