// Package publisher runs the three-step Instagram publish workflow:
// create a media container, wait until the platform has processed it, then
// publish it.
//
// The wait is a fixed-interval poll with a wall-clock deadline. A container
// that reports ERROR fails immediately; one that never reports FINISHED
// fails once the deadline has passed. Nothing is retried and nothing is
// compensated: a container left behind by a failed attempt is abandoned.
package publisher
