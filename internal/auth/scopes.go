package auth

// Known OAuth scopes accepted by the API.
const (
	ScopeFitnessRead  = "fitness:read"
	ScopeFitnessWrite = "fitness:write"
	ScopeReportsRun   = "reports:run"
)
