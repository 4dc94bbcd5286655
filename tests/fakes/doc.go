// Package fakes provides test doubles for the runbook's capability
// interfaces.
//
// This package contains fake implementations of the cluster and installer
// interfaces that allow the deployment steps to be exercised without a real
// cluster or chart repository. Fakes are manually implemented (not
// generated) to provide precise control over test behavior, and they record
// every call so tests can assert exactly which cluster effects a step
// produced.
//
// Usage:
//
//	fake := fakes.NewFakeCluster().
//	    WithPod("core", "core-postgres-0", "Running").
//	    WithSecret("core", "core-postgres-superuser", map[string][]byte{"password": []byte("pw")})
//	// Run steps against fake, then assert on fake.GetCallCount("CreateNamespace") etc.
package fakes
