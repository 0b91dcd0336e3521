// Package saascore verifies bearer identity tokens issued by Google Cloud
// Identity Platform and returns trusted identity claims to calling
// services. It is meant to be linked into many independent backends so
// each can authenticate requests without its own copy of key-fetching and
// claim-validation logic.
//
// Construct a Config (from options or from SAAS_CORE_* environment
// variables), then build a Verifier:
//
//	cfg, err := saascore.ConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	verifier, err := saascore.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	identity, err := verifier.Verify(ctx, rawToken)
//
// Failures carry a Kind that maps cleanly onto transport responses:
// configuration faults are server errors, authentication failures are
// unauthorized, and an unverified email is a distinguished forbidden-class
// failure. The framework subpackages provide ready-made adapters for
// echo, gin and gRPC that perform this mapping.
package saascore
