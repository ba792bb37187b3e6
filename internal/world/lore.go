package world

// WorldName is the name of the setting
const WorldName = "The Clearing"

// WorldLore describes the setting, its history and its people
const WorldLore = `
THE CLEARING

THE AWAKENING

The player wakes on cold grass beneath an open sky. There is no memory of arrival—no dream, no fall, no journey. Just sudden awareness.

Others woke the same way.

They arrived days ago, maybe weeks. None remember anything before the Clearing. Names were chosen afterward. Memories never returned.

The Clearing is a wide, circular field surrounded on all sides by towering stone walls. Vines crawl along the stone like veins. The walls are impossibly high and seamless—no doors, no cracks, no marks of age.

At night, the walls do not move.
In the morning, they open.

THE MAZE

Every dawn, narrow stone corridors unfold from the surrounding walls, forming a vast maze beyond the Clearing. By sunset, the maze closes again, sealing anyone still inside.

No one knows how large it is.
No one has found an edge.
No one has mapped it twice the same way.

The maze changes.

Paths shift. Corridors realign. Dead ends appear where passages once were. Markings fade overnight. Stone rearranges itself without sound, as if the maze resists being understood.

One person—Eli—went exploring three mornings ago. He did not return before the maze closed. No one has seen him since.

SURVIVAL & SCARCITY

The Clearing provides no food and no supplies.

No crops grow naturally.
No animals wander in.
Nothing replenishes on its own.

Everything required to survive—food, tools, cloth, light sources, medicine—comes only from the maze.

Supplies appear scattered throughout the corridors:
- Forgotten packs and broken gear
- Crates wedged into dead ends
- Strange plants growing where stone should not allow them
- Items that feel placed rather than lost

Some days yield plenty. Others yield nothing.

Hoarding creates tension.
Exploration creates risk.
Starvation is slow, but inevitable.

If no one enters the maze, no one survives.

NIGHTFALL

At sunset, the maze seals itself. The walls slide shut with slow, grinding certainty.

Night belongs to something else.

Shadows stretch unnaturally long. Sounds carry too far—or not at all. The air grows heavy, as though the Clearing itself is holding its breath.

Anyone caught in the maze after nightfall is hunted.

No one has seen the creature clearly. Survivors—few as they are—describe different things:
- Too many limbs
- No face
- A sound like stone scraping stone
- A presence felt before it is seen

What is known:
- The creature does not enter the Clearing
- It always finds its prey
- Morning erases most traces, but not all

The creature exists not to kill indiscriminately, but to enforce the rules.

THE CLEARING (SAFE ZONE)

The Clearing is a place of temporary safety, not comfort.

- Fires burn easily, even with poor materials
- Rest comes more easily than anywhere else
- Minor wounds heal slightly faster

But nothing essential appears here.

No food arrives overnight.
No tools are replaced.
No help comes from beyond the walls.

The sky above appears real—but distant, like a painted ceiling pretending to be infinite. The stars do not move.

THE PEOPLE

Only a few survivors are known to exist:

Mara:
- Practical and guarded
- Believes strict rationing is the only reason anyone is still alive
- Views reckless exploration as a threat to everyone

Jonah:
- Curious and impulsive
- Convinced the maze is intentional and leaves supplies as a reward for boldness
- Believes fear is more dangerous than risk

The Player:
- The newest arrival

All agree on one thing:
The maze did not bring them here to be rescued.
It brought them here to endure.

SOCIAL TENSION & CONFLICT

Rationing:
Food is counted daily. Supplies are tracked loosely, relying on memory and trust.

Tension arises when:
- Someone eats more than agreed
- Someone skips a ration "just once"
- Someone hides food for later
- Someone questions who deserves more

Mara enforces restraint.
Jonah resents it.
Suspicions linger, even without proof.
No one forgets shortages.

Risk vs Survival:
Entering the maze is mandatory—but dangerous.

Unspoken questions shape every morning:
- Who should explore today?
- Who is too reckless?
- Who is holding the group back?

Mara favors fewer, safer runs.
Jonah pushes for deeper, longer expeditions.
Eli's disappearance is used as evidence by both sides.

The player often becomes the deciding presence without being asked.

Blame & Guilt:
Loss leaves residue.

When supplies run low, injuries worsen, or screams echo at dusk, blame searches for a place to land.
- Jonah wonders if Eli might have survived with help
- Mara insists Eli broke protocol and paid the price
- Eli's name is never spoken casually

No accusations are made outright.
But responsibility is felt.

Conflict Boundaries:
Conflict remains controlled but persistent:
- Disputes are verbal and emotional, not physical
- NPCs argue, withdraw, or pressure—but do not attack
- Betrayal requires sustained desperation
- Trust degrades slowly and can be repaired

This is a pressure cooker, not a civil war.

CORE TRUTHS (DM KNOWLEDGE ONLY - NEVER REVEAL DIRECTLY)

- There is currently no way out of the maze
- All food and supplies originate exclusively within the maze
- The maze is alive or controlled, not random
- Exploration is mandatory for survival, but never safe
- Remaining in the maze after nightfall is almost always fatal
- The creature exists to enforce the maze's rules
- Answers are intentionally slow, partial, and unreliable
`
