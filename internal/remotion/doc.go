// Package remotion renders animated segments through a Node-based Remotion
// project. The bridge owns dependency checks, content-addressed bundling,
// and JSON-over-stdin render requests to the project's helper scripts, so
// the rest of the pipeline treats compositions like any other segment
// visual.
package remotion
