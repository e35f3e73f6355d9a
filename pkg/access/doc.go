// Package access answers "can user U perform this feature path on
// tenant T" with a structured decision.
//
// Evaluation short-circuits on the first decisive branch, in a fixed
// order: platform super admin bypass, plan inclusion, feature path
// existence, tenant super admin bypass, then role grants on the deepest
// resolved node. The order is load-bearing. The platform bypass
// precedes everything, including the existence check. The tenant bypass
// comes only after the plan and existence checks, so tenant admins
// never see features their plan excludes or that do not exist. A denial
// carries a distinct reason code per branch so callers can render
// "not found" and "no access" differently.
//
// Infrastructure failures (store or tree loading errors) surface as
// errors, never as silent allows. Callers must fail closed.
package access
