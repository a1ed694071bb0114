// Package discovery defines the domain types shared by the reviewer-call
// discovery pipeline: conferences, fetched pages, links, analyses and the
// candidate records handed to the dataset and notification collaborators.
package discovery
