// Package mock provides a test double for the remote.Service interface.
//
// The mock succeeds by default with generated ids, supports custom behavior
// injection via function fields, and records every call so tests can assert
// on call counts, call order, and observed upload concurrency.
//
// # Usage in Tests
//
//	svc := mock.NewService()
//	svc.CreateFunc = func(ctx context.Context, name string) (string, error) {
//	    if name == "b" {
//	        return "", &remote.Error{Kind: remote.KindTransient, Op: "create", Message: "boom"}
//	    }
//	    return "kb-" + name, nil
//	}
//
//	// After the run:
//	svc.CreateCalls()        // base names in call order
//	svc.MutatingCalls()      // 0 in dry-run mode
//	svc.MaxInFlightUploads() // concurrency bound observed
package mock
