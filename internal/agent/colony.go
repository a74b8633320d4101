package agent

import (
	"fmt"
	"math/rand"

	"lifesim/internal/genotype"
	"lifesim/internal/scape"
)

// Colony is the set of agents sharing one world, indexed by grid occupant id.
type Colony struct {
	world  *scape.World
	agents []*Agent
}

func NewColony(world *scape.World) *Colony {
	return &Colony{world: world}
}

func (c *Colony) World() *scape.World {
	return c.world
}

// Spawn places a new agent carrying genome on a random free cell with a
// random facing direction.
func (c *Colony) Spawn(rng *rand.Rand, genome genotype.Genome) (*Agent, error) {
	if len(c.agents) >= c.world.Capacity {
		return nil, fmt.Errorf("colony is at capacity %d", c.world.Capacity)
	}
	id := len(c.agents)
	x, y, err := c.world.Grid.DeployRandom(rng, id)
	if err != nil {
		return nil, err
	}
	a := &Agent{
		id:     id,
		genome: genome,
		colony: c,
		x:      x,
		y:      y,
		facing: scape.RandomDirection(rng),
		alive:  true,
		rng:    rng,
	}
	c.agents = append(c.agents, a)
	c.world.SetAlive(c.world.Alive() + 1)
	return a, nil
}

// Agents returns every agent spawned since the last Reset, dead ones included.
func (c *Colony) Agents() []*Agent {
	return append([]*Agent(nil), c.agents...)
}

func (c *Colony) Living() []*Agent {
	out := make([]*Agent, 0, len(c.agents))
	for _, a := range c.agents {
		if a.alive {
			out = append(out, a)
		}
	}
	return out
}

// Reset empties the board and forgets every agent.
func (c *Colony) Reset() {
	c.world.Grid.Clear()
	c.world.SetAlive(0)
	c.agents = nil
}

func (c *Colony) agent(id int) *Agent {
	if id < 0 || id >= len(c.agents) {
		return nil
	}
	return c.agents[id]
}
