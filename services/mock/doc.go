// Package mock provides in-memory implementations of the collaborator
// interfaces in package services, intended for tests. The graph and search
// mocks keep real state so pipeline tests can assert on persisted effects.
package mock
