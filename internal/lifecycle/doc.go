// Package lifecycle drives activation and deactivation of a resolved module
// set against a host's object system. Activation registers composite types
// in reference order and then runs module activation hooks in load order;
// deactivation undoes both in exact reverse. Every step is fault-isolated:
// one failing type or hook is logged and the batch continues, and no error
// or panic escapes the Activate/Deactivate boundary.
package lifecycle
