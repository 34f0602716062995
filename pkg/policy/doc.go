// Package policy provides Open Policy Agent (OPA) integration for
// Stackform.
//
// Policies are Rego rules evaluated against the resource declarations a
// stack renders. The package ships built-in policies for common AWS
// governance requirements and supports loading custom .rego and .json
// policies from disk, with hot reload on file change.
//
// # Architecture
//
// The policy system consists of four main components:
//
//  1. Engine - Compiles and evaluates Rego policies
//  2. Loader - Loads policies from files and directories
//  3. Types - Data structures for policies, violations, and results
//  4. Built-in Policies - Pre-defined policies for AWS declarations
//
// # Usage
//
// Creating a policy engine and evaluating declarations:
//
//	logger := zerolog.New(os.Stdout)
//	engine, err := policy.NewEngine(logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := engine.EvaluateResources(ctx, resources, "production")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Allowed {
//	    for _, v := range result.Violations {
//	        fmt.Println(v.Message)
//	    }
//	}
//
// # Modes
//
// In enforcing mode, error and critical violations make the result
// disallowed. In advisory mode, only critical violations block; errors
// are still reported.
//
// # Writing policies
//
// A policy is a Rego module with a deny rule producing violation objects:
//
//	package stackform.policies.example
//
//	import rego.v1
//
//	deny contains violation if {
//	    input.resource.type == "aws_s3_bucket"
//	    not input.resource.attributes.versioning
//	    violation := {
//	        "message": "buckets must enable versioning",
//	        "severity": "warning",
//	    }
//	}
//
// The input document carries the rendered declaration under
// input.resource (type, name, attributes) and the evaluation context
// under input.context (environment, region, timestamp).
package policy
