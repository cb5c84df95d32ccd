// Package router implements capability-based agent selection with adaptive
// scoring.
//
// Agent types register the capability tags they serve. Each registration
// carries a rolling performance profile, average latency and success rate
// kept as exponentially weighted moving averages that execution outcomes
// fold into over time. FindBestAgent filters the registry by capability and
// ranks the candidates by a weighted blend of success rate and normalized
// latency; high and critical priorities shift the blend toward success rate
// so reliability outranks speed when it matters. Ties are broken
// deterministically, preferring the agent with fewer declared capabilities
// and then lexical agent type, so identical inputs always produce identical
// decisions.
package router
