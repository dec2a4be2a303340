/*
Package markov implements a first-order Markov chain over any ordered element
type, learned from an observed sequence.

Build derives a sorted state space and a transition count matrix from the
sequence, then turns each row of counts into a sampler. Two interchangeable
sampling strategies are provided: StrategyAlias (Walker's alias method,
constant time per draw) and StrategyCumulative (a linear scan of the
cumulative distribution).

	chain, err := markov.Build([]string{"I", "think", "that", "that", "boy", "wrote"})
	if err != nil {
		return err
	}
	for range 20 {
		fmt.Print(chain.Next(), " ")
	}

Next uses a process-wide random source; NextRand accepts any Source, and
NewSource returns a seeded one for reproducible output. Chains can be
exported to and imported from JSON or YAML snapshots.
*/
package markov
