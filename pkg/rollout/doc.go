/*
Package rollout implements deterministic percentage-based feature gating.

A subject id (hostname) hashes to a fixed bucket in [0,100); the subject
is enabled when its bucket is below the rollout percentage. There is no
randomness: the same inputs always produce the same decision, and because
the bucket does not depend on the percentage, rollout changes are
monotone: raising the threshold only adds hosts, lowering it only
removes them.
*/
package rollout
