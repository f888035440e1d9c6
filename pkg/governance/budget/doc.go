// Package budget gates requests against a per-organization daily spend
// ceiling, with a soft degrade signal before the hard deny.
package budget
