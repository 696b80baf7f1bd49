// Package behavior implements a small behavior-tree runtime. A tree is
// assembled from Nodes, entered once, ticked repeatedly against a shared
// Blackboard until it reports a terminal status, and exited once.
//
// Composites manage their children's lifecycles themselves: a child is
// entered lazily, right before its first tick, and exited as soon as its
// subtree is finished or abandoned. Errors returned by leaf actions
// propagate to the root caller unmodified; they are never converted into
// StatusFailure. Misuse of the enter/tick/exit protocol panics with one of
// the package sentinel errors.
package behavior
