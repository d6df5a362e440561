/*
Package queue defines the tasks performed to grow a tree
as well as an interface for a Queue to manage them.

It also provides an in-memory implementation of the Queue interface,
while package redisq provides one shared by processes through redis.
*/
package queue
