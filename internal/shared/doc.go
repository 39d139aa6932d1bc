// Package shared holds helpers used by more than one petrodash package that
// belong to no single domain.
//
// The testutil subpackage captures slog output in tests:
//
//	logger, handler := testutil.NewTestLogger(t)
//	svc := services.NewPreferenceService(store, nil, logger)
//	...
//	assert.True(t, handler.ContainsMessage("failed to publish preference update"))
//
// Nothing here may import other internal packages.
package shared
